package domain

import "time"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ, назначает ему идентификатор и
	// возвращает сохранённую запись.
	Create(order Order) (Order, error)
	// Get возвращает заказ по идентификатору без фильтра по владельцу
	// (административный путь) или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// GetForUser возвращает заказ по идентификатору и владельцу.
	// Чужой заказ неотличим от отсутствующего: в обоих случаях ErrOrderNotFound.
	GetForUser(id string, userID int64) (Order, error)
	// ListByUser возвращает заказы пользователя от новых к старым.
	// Пустой список — не ошибка.
	ListByUser(userID int64) ([]Order, error)
	// UpdateStatus меняет статус и updated_at заказа и возвращает обновлённую
	// запись. Если изменение не затронуло ни одной записи — ErrOrderNotFound.
	UpdateStatus(id string, status OrderStatus, updatedAt time.Time) (Order, error)
}
