package backend

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/rbac-console/pkg/errors"
)

//go:embed openapi.yaml
var openapiSpec []byte

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

// RequestValidator rejects requests that do not match doc. Requests for routes the
// document does not describe pass through untouched. When mounted under a prefix, paths
// are matched relative to the mount point.
func RequestValidator(doc *openapi3.T) (func(http.Handler) http.Handler, error) {
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build openapi router: %w", err)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := r
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath != "" {
				req = r.Clone(r.Context())
				req.URL.Path = rctx.RoutePath
				req.URL.RawPath = ""
			}

			route, pathParams, err := router.FindRoute(req)
			if err != nil {
				// chi answers unknown paths and methods itself
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    req,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				},
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				renderError(w, r, validationError(route, err))
				return
			}
			// the validator consumed and replaced the body
			r.Body = req.Body
			next.ServeHTTP(w, r)
		})
	}, nil
}

func validationError(route *routers.Route, err error) *errors.Error {
	e := errors.Wrap(err, errors.ErrCodeValidationFailed, "request does not match the API contract")
	if route != nil && route.Operation != nil {
		e = e.WithDetail("operation", route.Operation.OperationID)
	}
	return e
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	msg := err.Error()
	var e *errors.Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	render.Status(r, errors.MapErrorCodeToHTTPStatus(code))
	render.JSON(w, r, ErrorResponse{Code: code, Message: msg})
}
