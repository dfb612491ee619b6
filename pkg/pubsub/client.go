package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ian1hx/equiploan-backend/pkg/config"
	"github.com/ian1hx/equiploan-backend/pkg/logger"
)

type Client struct {
	inner     *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient connects to Pub/Sub and fails fast when the orders topic
// is missing, so a misprovisioned environment dies at boot.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}

	inner, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{inner: inner, projectID: project, cfg: cfg}
	if err := c.checkTopic(ctx, cfg.OrdersTopic); err != nil {
		_ = inner.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(ctx, "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) checkTopic(ctx context.Context, name string) error {
	resource := c.resourceName("topics", name)
	if resource == "" {
		return fmt.Errorf("topic %q not configured", name)
	}
	_, err := c.inner.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: resource})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %q does not exist", name)
	default:
		return fmt.Errorf("checking topic %q: %w", name, err)
	}
}

// Publisher returns a publisher handle for the given topic ID or full
// resource name, or nil when the topic is not configured.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.inner == nil {
		return nil
	}
	resource := c.resourceName("topics", name)
	if resource == "" {
		return nil
	}
	return c.inner.Publisher(resource)
}

// OrdersPublisher returns the configured order event publisher.
func (c *Client) OrdersPublisher() *pubsub.Publisher {
	return c.Publisher(c.cfg.OrdersTopic)
}

// OrdersSubscription returns the configured orders subscriber.
func (c *Client) OrdersSubscription() *pubsub.Subscriber {
	if c == nil || c.inner == nil {
		return nil
	}
	resource := c.resourceName("subscriptions", c.cfg.OrdersSubscription)
	if resource == "" {
		return nil
	}
	return c.inner.Subscriber(resource)
}

// Ping verifies connectivity by re-checking the orders topic.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.checkTopic(ctx, c.cfg.OrdersTopic)
}

func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

// resourceName expands a bare ID into projects/<id>/<kind>/<name>;
// already-qualified names pass through untouched.
func (c *Client) resourceName(kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if c.projectID == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", c.projectID, kind, name)
}
