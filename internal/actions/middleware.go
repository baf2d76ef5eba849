package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/rs/zerolog/log"
)

// Recover turns a panicking action into a Failure
func Recover() Middleware {
	return func(next ExecuteFunc) ExecuteFunc {
		return func(ctx context.Context, a Action, ac *ActionContext) (res ActionResult) {
			defer func() {
				if p := recover(); p != nil {
					log.Error().
						Str("action", a.Name()).
						Int("row", ac.RowNumber).
						Interface("panic", p).
						Msg("Action panicked")
					res = Failure{
						Message: fmt.Sprintf("%s panicked", a.Name()),
						Err:     fmt.Errorf("panic: %v", p),
					}
				}
			}()
			return next(ctx, a, ac)
		}
	}
}

// Timing reports the duration of every action to observe
func Timing(observe func(action string, d time.Duration)) Middleware {
	return func(next ExecuteFunc) ExecuteFunc {
		return func(ctx context.Context, a Action, ac *ActionContext) ActionResult {
			started := time.Now()
			res := next(ctx, a, ac)
			observe(a.Name(), time.Since(started))
			return res
		}
	}
}

// TranslateErrors adds a readable message for catalog errors to a Failure.
// The original message is kept and the translation appended.
func TranslateErrors() Middleware {
	return func(next ExecuteFunc) ExecuteFunc {
		return func(ctx context.Context, a Action, ac *ActionContext) ActionResult {
			res := next(ctx, a, ac)
			f, ok := res.(Failure)
			if !ok || f.Err == nil {
				return res
			}
			if v, ok := catalog.AsViolation(f.Err); ok {
				f.Errors = append(f.Errors, fmt.Sprintf("conflict on %s: %s", v.Constraint, v.Kind))
			} else if errors.Is(f.Err, catalog.ErrStore) {
				f.Errors = append(f.Errors, "catalog store unavailable")
			} else if errors.Is(f.Err, catalog.ErrNotFound) {
				f.Errors = append(f.Errors, "referenced record not found")
			}
			return f
		}
	}
}
