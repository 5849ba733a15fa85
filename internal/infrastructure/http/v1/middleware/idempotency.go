package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"konditer/internal/core/apperror"
	appctx "konditer/internal/core/context"
	"konditer/internal/core/idempotency"
	"konditer/pkg/logger"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"
const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

// Idempotency middleware replays the stored response of a repeated request.
// Responses below 500 are stored; a server error releases the key so the
// client may retry. A nil store disables the middleware.
func Idempotency(store idempotency.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || !mutating(c.Request.Method) {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, _ := io.ReadAll(limited)
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)

		ctx := c.Request.Context()
		req := idempotency.Request{
			Key:       key,
			UserID:    appctx.GetUserID(ctx),
			Operation: c.Request.Method + " " + c.Request.URL.Path,
			Hash:      hex.EncodeToString(hash[:]),
		}

		replay, err := store.Acquire(ctx, req)
		if err != nil {
			if _, ok := apperror.AsAppError(err); !ok {
				err = apperror.NewInternal(err).WithDetail("component", "idempotency")
			}
			_ = c.Error(err)
			c.Abort()
			return
		}
		if replay != nil {
			c.Header("Idempotent-Replay", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		// errors are rendered here so the stored body matches what the client saw
		if len(c.Errors) > 0 && !c.Writer.Written() {
			renderError(c, c.Errors.Last().Err)
		}

		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(ctx, key); err != nil {
				logger.Warn(ctx, "release idempotency key", "key", key, "error", err)
			}
			return
		}
		err = store.Complete(ctx, key, idempotency.Replay{
			StatusCode:  status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		})
		if err != nil {
			logger.Warn(ctx, "complete idempotency key", "key", key, "error", err)
		}
	}
}

func mutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut ||
		method == http.MethodPatch || method == http.MethodDelete
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
