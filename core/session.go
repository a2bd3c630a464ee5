package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/crmarques/hypersync/compare"
	"github.com/crmarques/hypersync/config"
	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/graph"
	httptransport "github.com/crmarques/hypersync/internal/providers/transport/http"
	"github.com/crmarques/hypersync/orchestrator"
	"github.com/crmarques/hypersync/resource"
	"github.com/crmarques/hypersync/scheduler"
	"github.com/crmarques/hypersync/transport"
)

// Session is one configured client of a hypermedia API: transport,
// scheduler, resource graph and orchestrator sharing a single identity
// table.
type Session struct {
	Config       config.Session
	Transport    transport.Transport
	Scheduler    *scheduler.Scheduler
	Client       *graph.Client
	Orchestrator *orchestrator.DefaultOrchestrator
	Logger       logr.Logger

	tracerProvider trace.TracerProvider
	shutdown       func(context.Context) error
	version        *semver.Version
}

type SessionOption func(*sessionOptions)

type sessionOptions struct {
	transport      transport.Transport
	logger         logr.Logger
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
}

// WithTransport replaces the HTTP transport built from config.API.
func WithTransport(t transport.Transport) SessionOption {
	return func(o *sessionOptions) {
		o.transport = t
	}
}

func WithLogger(logger logr.Logger) SessionOption {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

func WithRegisterer(registerer prometheus.Registerer) SessionOption {
	return func(o *sessionOptions) {
		o.registerer = registerer
	}
}

// WithTracerProvider skips the OTLP setup from config.Telemetry.
func WithTracerProvider(provider trace.TracerProvider) SessionOption {
	return func(o *sessionOptions) {
		o.tracerProvider = provider
	}
}

func NewSession(ctx context.Context, cfg config.Session, opts ...SessionOption) (*Session, error) {
	cfg = cfg.WithDefaults()
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	options := sessionOptions{logger: logr.Discard()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&options)
	}

	apiTransport := options.transport
	if apiTransport == nil {
		httpTransport, err := httptransport.NewHTTPTransport(cfg.API)
		if err != nil {
			return nil, err
		}
		apiTransport = httpTransport
	}

	tracerProvider := options.tracerProvider
	shutdown := func(context.Context) error { return nil }
	if tracerProvider == nil {
		provider, providerShutdown, err := newTracerProvider(ctx, cfg.Telemetry)
		if err != nil {
			return nil, err
		}
		tracerProvider = provider
		shutdown = providerShutdown
	}

	schedulerOptions := []scheduler.Option{
		scheduler.WithConcurrency(cfg.Scheduler.Concurrency),
		scheduler.WithRateLimit(cfg.Scheduler.RateLimit, cfg.Scheduler.Burst),
		scheduler.WithTracerProvider(tracerProvider),
		scheduler.WithLogger(options.logger.WithName("scheduler")),
	}
	if options.registerer != nil {
		schedulerOptions = append(schedulerOptions, scheduler.WithRegisterer(options.registerer))
	}
	requestScheduler := scheduler.New(schedulerOptions...)

	client := graph.NewClient(apiTransport, requestScheduler, graph.WithLogger(options.logger.WithName("graph")))

	return &Session{
		Config:    cfg,
		Transport: apiTransport,
		Scheduler: requestScheduler,
		Client:    client,
		Orchestrator: &orchestrator.DefaultOrchestrator{
			Client:         client,
			Logger:         options.logger.WithName("orchestrator"),
			TracerProvider: tracerProvider,
		},
		Logger:         options.logger,
		tracerProvider: tracerProvider,
		shutdown:       shutdown,
	}, nil
}

// Root returns the tracked API root resource.
func (s *Session) Root() *graph.Resource {
	return s.Client.Resource(s.Config.API.Root)
}

// Resource tracks uri, resolving it against the API root.
func (s *Session) Resource(uri string) *graph.Resource {
	return s.Client.Resource(s.ResolveURI(uri))
}

func (s *Session) ResolveURI(uri string) string {
	trimmed := strings.TrimSpace(uri)
	if trimmed == "" {
		return s.Config.API.Root
	}
	return resource.ResolveReference(s.Config.API.Root, trimmed)
}

// Connect hydrates the API root and enforces api.require-version against
// the version header or the root's version attribute.
func (s *Session) Connect(ctx context.Context) (*graph.Resource, error) {
	root := s.Root()
	if _, err := s.Client.Synchronise(ctx, root, graph.LoadOptions{ForceLoad: true}); err != nil {
		return root, err
	}

	switch root.Status() {
	case graph.StatusHydrated:
	case graph.StatusForbidden:
		return root, faults.NewTypedError(faults.AuthError, fmt.Sprintf("access to API root %s is forbidden", root.URI()), nil)
	default:
		return root, faults.NewTypedError(faults.TransportError, fmt.Sprintf("API root %s could not be loaded", root.URI()), nil)
	}

	version, err := s.checkVersion(root)
	if err != nil {
		return root, err
	}
	s.version = version
	if version != nil {
		s.Logger.V(1).Info("connected", "root", root.URI(), "version", version.String())
	}
	return root, nil
}

// Version is the API version seen by Connect, or nil.
func (s *Session) Version() *semver.Version {
	return s.version
}

func (s *Session) checkVersion(root *graph.Resource) (*semver.Version, error) {
	raw := apiVersion(root, s.Config.API.VersionHeader)
	requirement := strings.TrimSpace(s.Config.API.RequireVersion)

	if raw == "" {
		if requirement != "" {
			return nil, faults.NewTypedError(faults.ValidationError, "API does not report a version", nil)
		}
		return nil, nil
	}

	version, err := semver.NewVersion(raw)
	if err != nil {
		if requirement != "" {
			return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("API version %q is not semver", raw), err)
		}
		s.Logger.Info("ignoring non-semver API version", "version", raw)
		return nil, nil
	}
	if requirement == "" {
		return version, nil
	}

	constraint, err := semver.NewConstraint(requirement)
	if err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("api.require-version %q is invalid", requirement), err)
	}
	if ok, reasons := constraint.Validate(version); !ok {
		return nil, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("API version %s does not satisfy %s", version, requirement),
			errors.Join(reasons...),
		)
	}
	return version, nil
}

func apiVersion(root *graph.Resource, header string) string {
	if header != "" {
		if value := strings.TrimSpace(root.State().Header.Get(header)); value != "" {
			return value
		}
	}
	value, ok := root.Attribute("version")
	if !ok {
		return ""
	}
	text, _ := value.(string)
	return strings.TrimSpace(text)
}

// SyncOptions maps the sync section of the config onto orchestrator
// options.
func (s *Session) SyncOptions() (orchestrator.Options, error) {
	comparators, err := compare.ParseAll(s.Config.Sync.Comparators)
	if err != nil {
		return orchestrator.Options{}, err
	}
	return orchestrator.Options{
		Comparators:            comparators,
		BatchSize:              s.Config.Sync.BatchSize,
		ChildStrategyBatchSize: s.Config.Sync.ChildStrategyBatchSize,
		ForceLoad:              s.Config.Sync.ForceLoad,
		MappedTitleAttribute:   s.Config.Sync.MappedTitleAttribute,
		ReplaceURIList:         s.Config.Sync.ReplaceURIList,
		StopOnError:            s.Config.Sync.StopOnError,
	}, nil
}

// Close cancels outstanding requests and flushes telemetry.
func (s *Session) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.Scheduler.ClearAll()
	s.Scheduler.Close()
	if s.shutdown == nil {
		return nil
	}
	if err := s.shutdown(ctx); err != nil {
		return faults.NewTypedError(faults.InternalError, "failed to flush telemetry", err)
	}
	return nil
}
