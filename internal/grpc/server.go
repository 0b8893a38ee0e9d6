package grpc

import (
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server is the gRPC front the simulator exposes to a host process. It
// carries only a standard health service today — the simulator itself is
// driven in-process via engine.Simulate, not over RPC — but it gives an
// operator a uniform way to probe liveness the same way the rest of the
// pack's services do.
type Server struct {
	mu sync.RWMutex

	grpcServer *grpc.Server
	health     *health.Server
	config     *ServerConfig
	listener   net.Listener
	running    bool
}

// NewServer creates a gRPC server with the given configuration. Pass nil
// to accept DefaultServerConfig.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
	}
	grpcServer := grpc.NewServer(opts...)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		config:     cfg,
	}, nil
}

// SetServingStatus updates the status the health service reports for a
// component name ("" is the overall server status).
func (s *Server) SetServingStatus(component string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(component, status)
}

// Start begins accepting connections and blocks until the server stops or
// the listener fails.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	lis, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.listener = lis
	s.running = true
	s.mu.Unlock()

	return s.grpcServer.Serve(lis)
}

// Stop gracefully shuts the server down, marking the health service
// NOT_SERVING first so in-flight health checks observe the transition.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	s.running = false
}

// Addr returns the address the server is listening on, or the configured
// address if it has not started yet.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}
