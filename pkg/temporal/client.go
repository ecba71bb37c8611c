package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/canopy-network/liquidityx/pkg/retry"
	"github.com/canopy-network/liquidityx/pkg/utils"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Config locates the Temporal frontend and names the pipeline whose queue
// and workflow IDs the client uses.
type Config struct {
	HostPort  string
	Namespace string
	Pipeline  string
}

// ConfigFromEnv reads TEMPORAL_HOSTPORT and TEMPORAL_NAMESPACE.
func ConfigFromEnv(pipeline string) Config {
	return Config{
		HostPort:  utils.Env("TEMPORAL_HOSTPORT", "localhost:7233"),
		Namespace: utils.Env("TEMPORAL_NAMESPACE", DefaultNamespace),
		Pipeline:  pipeline,
	}
}

func (cfg Config) options(logger *zap.Logger) client.Options {
	return client.Options{HostPort: cfg.HostPort, Namespace: cfg.Namespace, Logger: NewZapAdapter(logger)}
}

// Client is a Temporal connection scoped to one pipeline.
type Client struct {
	Config
	TClient client.Client
	logger  *zap.Logger
}

// NewClient connects and waits for the frontend to pass a health check,
// retrying for up to five minutes.
func NewClient(ctx context.Context, logger *zap.Logger, cfg Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	logger = logger.With(zap.String("namespace", cfg.Namespace), zap.String("pipeline", cfg.Pipeline))
	logger.Info("Connecting to Temporal", zap.String("host", cfg.HostPort))

	c := &Client{Config: cfg, logger: logger}
	err := retry.WithBackoff(ctx, retry.DefaultConfig(), logger, "temporal_connection", func() error {
		tc, err := client.DialContext(ctx, cfg.options(logger))
		if err != nil {
			return err
		}
		if _, err := tc.CheckHealth(ctx, nil); err != nil {
			tc.Close()
			return err
		}
		c.TClient = tc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) ReduceQueue() string { return ReduceQueue(c.Pipeline) }

func (c *Client) HeadScanWorkflowID() string { return HeadScanWorkflowID(c.Pipeline) }

func (c *Client) ReduceBlockWorkflowID(height uint64) string {
	return ReduceBlockWorkflowID(c.Pipeline, height)
}

// EnsureNamespace registers the namespace with the given retention if the
// server does not know it.
func (c *Client) EnsureNamespace(ctx context.Context, retention time.Duration) error {
	ns, err := client.NewNamespaceClient(c.options(c.logger))
	if err != nil {
		return fmt.Errorf("namespace client: %w", err)
	}
	defer ns.Close()

	var notFound *serviceerror.NamespaceNotFound
	switch _, err := ns.Describe(ctx, c.Namespace); {
	case err == nil:
		return nil
	case !errors.As(err, &notFound):
		return fmt.Errorf("describe namespace %s: %w", c.Namespace, err)
	}

	c.logger.Info("Registering Temporal namespace", zap.Duration("retention", retention))
	err = ns.Register(ctx, &workflowservice.RegisterNamespaceRequest{
		Namespace:                        c.Namespace,
		WorkflowExecutionRetentionPeriod: durationpb.New(retention),
	})
	var exists *serviceerror.NamespaceAlreadyExists
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("register namespace %s: %w", c.Namespace, err)
	}
	return nil
}

// StartHeadScan starts the pipeline's head scan. A scan that is already
// running is reused, so overlapping ticks are harmless.
func (c *Client) StartHeadScan(ctx context.Context, workflow string, in interface{}) error {
	_, err := c.TClient.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       c.HeadScanWorkflowID(),
		TaskQueue:                c.ReduceQueue(),
		WorkflowIDConflictPolicy: enums.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
		WorkflowRunTimeout:       time.Hour,
	}, workflow, in)
	var running *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &running) {
		return nil
	}
	return err
}

func (c *Client) Close() {
	if c.TClient != nil {
		c.TClient.Close()
	}
}
