package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/visitor-arrivals/pkg/broker"
	"github.com/FACorreiaa/visitor-arrivals/pkg/metrics"
)

// HandlerFunc consumes one created object.
type HandlerFunc func(ctx context.Context, obj ObjectCreated) error

// Route sends objects whose key has Prefix and Suffix to Handle. Suffix
// matching ignores case.
type Route struct {
	Name   string
	Prefix string
	Suffix string
	Handle HandlerFunc
}

func (r Route) matches(key string) bool {
	return strings.HasPrefix(key, r.Prefix) &&
		strings.HasSuffix(strings.ToLower(key), strings.ToLower(r.Suffix))
}

// Router dispatches created objects to the first matching route.
type Router struct {
	routes []Route
	logger *slog.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{logger: logger}
}

// Handle registers a route.
func (r *Router) Handle(name, prefix, suffix string, h HandlerFunc) *Router {
	r.routes = append(r.routes, Route{Name: name, Prefix: prefix, Suffix: suffix, Handle: h})
	return r
}

// Match returns the route for key.
func (r *Router) Match(key string) (Route, bool) {
	for _, rt := range r.routes {
		if rt.matches(key) {
			return rt, true
		}
	}
	return Route{}, false
}

// Dispatch routes every object. All objects are attempted; the failures are
// joined.
func (r *Router) Dispatch(ctx context.Context, objects []ObjectCreated) error {
	var errs []error
	for _, obj := range objects {
		rt, ok := r.Match(obj.Key)
		if !ok {
			metrics.EventsTotal.WithLabelValues("ignored").Inc()
			r.logger.Debug("ignoring object", slog.String("bucket", obj.Bucket), slog.String("key", obj.Key))
			continue
		}

		metrics.EventsTotal.WithLabelValues(rt.Name).Inc()
		if err := rt.Handle(ctx, obj); err != nil {
			errs = append(errs, fmt.Errorf("%s %s/%s: %w", rt.Name, obj.Bucket, obj.Key, err))
		}
	}
	return errors.Join(errs...)
}

// HandleMessage is a broker.Handler for the event queue. Undecodable
// notifications are reported as malformed.
func (r *Router) HandleMessage(ctx context.Context, body []byte) error {
	objects, err := Decode(body)
	if err != nil {
		return fmt.Errorf("%w: %w", broker.ErrMalformed, err)
	}
	return r.Dispatch(ctx, objects)
}
