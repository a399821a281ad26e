package record

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound is returned by backends when a pending write does not exist.
var ErrNotFound = errors.New("pending write not found")

// validate is shared; validator.Validate caches struct metadata and is safe
// for concurrent use.
var validate = validator.New()

// PendingWrite is one write operation that could not be delivered.
//
// Seq is assigned by the backend on insert and defines replay order.
// Body is stored verbatim.
type PendingWrite struct {
	ID          string      `json:"id" validate:"required,max=128"`
	Seq         int64       `json:"seq"`
	URL         string      `json:"url" validate:"required,url"`
	Method      string      `json:"method" validate:"required,oneof=POST PUT PATCH DELETE"`
	Header      http.Header `json:"headers,omitempty"`
	Body        []byte      `json:"-"`
	BusinessKey string      `json:"business_key,omitempty"`
	CreatedAt   time.Time   `json:"created_at" validate:"required"`
}

// Validate checks the envelope fields.
func (w PendingWrite) Validate() error {
	if err := validate.Struct(w); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("invalid pending write %q: %s", w.ID, strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid pending write %q: %w", w.ID, err)
	}
	return nil
}

// Clone returns a deep copy. Backends hand out clones so callers cannot
// mutate stored state.
func (w PendingWrite) Clone() PendingWrite {
	out := w
	if w.Header != nil {
		out.Header = w.Header.Clone()
	}
	if w.Body != nil {
		out.Body = append([]byte(nil), w.Body...)
	}
	return out
}

// IsWriteMethod reports whether method is queued when delivery fails.
func IsWriteMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
