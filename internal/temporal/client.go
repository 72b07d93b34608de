package temporal

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"

	"github.com/helixir/paper-ranking-service/internal/observability"
)

const (
	// DefaultWorkflowExecutionTimeout bounds a whole media workflow run.
	DefaultWorkflowExecutionTimeout = 30 * time.Minute

	// DefaultHealthCheckTimeout bounds a server health check.
	DefaultHealthCheckTimeout = 5 * time.Second
)

// TLSConfig configures (mutual) TLS to the Temporal frontend.
type TLSConfig struct {
	Enabled    bool
	CertPath   string
	KeyPath    string
	CACertPath string
	ServerName string
}

func (t *TLSConfig) build() (*tls.Config, error) {
	if t == nil || !t.Enabled {
		return nil, nil
	}

	cfg := &tls.Config{ServerName: t.ServerName, MinVersion: tls.VersionTLS12}
	if t.CertPath != "" && t.KeyPath != "" {
		cert, err := tls.LoadX509KeyPair(t.CertPath, t.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	if t.CACertPath != "" {
		pem, err := os.ReadFile(t.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("parse CA certificate")
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// ClientConfig configures the Temporal connection.
type ClientConfig struct {
	// HostPort is the Temporal server address, e.g. "localhost:7233".
	HostPort  string
	Namespace string
	// TaskQueue is the queue media workflows are started on.
	TaskQueue string
	// TLS is nil for plaintext.
	TLS *TLSConfig
	// HealthCheckTimeout defaults to DefaultHealthCheckTimeout.
	HealthCheckTimeout time.Duration
}

// NewClient dials the Temporal server. SDK logs go to logger.
func NewClient(cfg ClientConfig, logger zerolog.Logger) (client.Client, error) {
	tlsCfg, err := cfg.TLS.build()
	if err != nil {
		return nil, fmt.Errorf("configure TLS: %w", err)
	}

	c, err := client.Dial(client.Options{
		HostPort:          cfg.HostPort,
		Namespace:         cfg.Namespace,
		Logger:            observability.NewTemporalLogger(logger),
		ConnectionOptions: client.ConnectionOptions{TLS: tlsCfg},
	})
	if err != nil {
		return nil, fmt.Errorf("create Temporal client: %w", err)
	}
	return c, nil
}

// MediaWorkflowClient starts media workflows and reads their progress. It
// owns the underlying client once constructed.
type MediaWorkflowClient struct {
	client             client.Client
	taskQueue          string
	healthCheckTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewMediaWorkflowClient wraps c.
func NewMediaWorkflowClient(c client.Client, cfg ClientConfig) *MediaWorkflowClient {
	timeout := cfg.HealthCheckTimeout
	if timeout <= 0 {
		timeout = DefaultHealthCheckTimeout
	}
	return &MediaWorkflowClient{client: c, taskQueue: cfg.TaskQueue, healthCheckTimeout: timeout}
}

// Close closes the underlying client. Further calls fail with
// ErrClientClosed.
func (c *MediaWorkflowClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && !c.closed {
		c.client.Close()
	}
	c.closed = true
}

func (c *MediaWorkflowClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Health checks the connection to the Temporal server.
func (c *MediaWorkflowClient) Health(ctx context.Context) error {
	if c.isClosed() {
		return &TemporalError{Op: "Health", Kind: ErrClientClosed}
	}

	ctx, cancel := context.WithTimeout(ctx, c.healthCheckTimeout)
	defer cancel()
	if _, err := c.client.CheckHealth(ctx, &client.CheckHealthRequest{}); err != nil {
		return wrapTemporalError("Health", err, "", "")
	}
	return nil
}

// StartMediaWorkflow starts workflowFunc with input under the ID
// "media-{request id}". A missing RequestID is generated.
func (c *MediaWorkflowClient) StartMediaWorkflow(ctx context.Context, workflowFunc interface{}, input MediaWorkflowInput) (workflowID, runID string, err error) {
	const op = "StartMediaWorkflow"
	if c.isClosed() {
		return "", "", &TemporalError{Op: op, Kind: ErrClientClosed}
	}
	if len(input.Papers) == 0 {
		return "", "", &TemporalError{Op: op, Kind: ErrInvalidArgument, Err: errors.New("no papers")}
	}
	if input.RequestID == "" {
		input.RequestID = uuid.NewString()
	}

	workflowID = "media-" + input.RequestID
	run, err := c.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: DefaultWorkflowExecutionTimeout,
	}, workflowFunc, input)
	if err != nil {
		return "", "", wrapTemporalError(op, err, workflowID, "")
	}
	return workflowID, run.GetRunID(), nil
}

// QueryProgress returns the progress of a running or completed media
// workflow.
func (c *MediaWorkflowClient) QueryProgress(ctx context.Context, workflowID string) (*MediaProgress, error) {
	const op = "QueryProgress"
	if c.isClosed() {
		return nil, &TemporalError{Op: op, Kind: ErrClientClosed, WorkflowID: workflowID}
	}

	resp, err := c.client.QueryWorkflow(ctx, workflowID, "", QueryProgress)
	if err != nil {
		return nil, wrapTemporalError(op, err, workflowID, "")
	}

	var progress MediaProgress
	if err := resp.Get(&progress); err != nil {
		return nil, &TemporalError{Op: op, Kind: ErrQueryFailed, WorkflowID: workflowID, Err: fmt.Errorf("decode query result: %w", err)}
	}
	return &progress, nil
}
