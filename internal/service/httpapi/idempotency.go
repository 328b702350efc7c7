package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyTTL       = 24 * time.Hour
)

// Idempotency обслуживает необязательный заголовок Idempotency-Key на создании
// заказа. Повторный запрос с тем же ключом и телом получает сохранённый ответ;
// тот же ключ с другим телом отклоняется. Без заголовка запрос проходит как есть.
func Idempotency(repo domain.IdempotencyRepository, logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyKeyHeader)
			if key == "" || repo == nil {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "failed to read request body")
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashRequest(r.Method, r.URL.Path, body)

			existing, err := repo.CreateProcessing(key, requestHash, time.Now().UTC().Add(idempotencyTTL))
			switch {
			case err == nil:
				// Первый запрос с этим ключом.
			case errors.Is(err, domain.ErrIdempotencyHashMismatch):
				writeError(w, http.StatusUnprocessableEntity, "Idempotency-Key was already used with a different request")
				return
			case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
				replayStoredResponse(w, existing)
				return
			default:
				logger.WithError(err).WithField("idempotency_key", key).Warn("idempotency registration failed")
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			if recorder.status >= http.StatusInternalServerError {
				// 5xx не кэшируются: запись снимается, чтобы повтор
				// с тем же ключом выполнился заново.
				if err := repo.Delete(key); err != nil {
					logger.WithError(err).WithField("idempotency_key", key).Warn("failed to release idempotency key")
				}
				return
			}

			var markErr error
			if recorder.status < http.StatusBadRequest {
				markErr = repo.MarkDone(key, recorder.body.Bytes(), recorder.status)
			} else {
				markErr = repo.MarkFailed(key, recorder.body.Bytes(), recorder.status)
			}
			if markErr != nil {
				logger.WithError(markErr).WithField("idempotency_key", key).Warn("failed to store idempotent response")
			}
		})
	}
}

func replayStoredResponse(w http.ResponseWriter, record domain.IdempotencyRecord) {
	if record.Status == domain.IdempotencyStatusProcessing {
		writeError(w, http.StatusConflict, "request with this Idempotency-Key is still being processed")
		return
	}
	if len(record.ResponseBody) == 0 {
		writeError(w, http.StatusConflict, "no stored response for this Idempotency-Key")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	status := record.HTTPStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(record.ResponseBody)
}

func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// responseRecorder дублирует ответ хендлера для сохранения в idempotency-записи.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
