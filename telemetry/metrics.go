package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	monitoring "cloud.google.com/go/monitoring/apiv3"
	"google.golang.org/genproto/googleapis/api/metric"
	"google.golang.org/genproto/googleapis/api/monitoredres"
	monitoringpb "google.golang.org/genproto/googleapis/monitoring/v3"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/Snaptraks/FateBot/constants"
	"github.com/Snaptraks/FateBot/utils"
)

// MetricsClient wraps the Google Cloud Monitoring client. A disabled
// client swallows every call, so callers never have to branch.
type MetricsClient struct {
	client    *monitoring.MetricClient
	projectID string
	enabled   bool
}

// NewMetricsClient creates a monitoring client, or a disabled no-op one
// when the project or credentials are missing.
func NewMetricsClient(projectID string) *MetricsClient {
	if projectID == "" {
		utils.Warn("Project ID not provided, telemetry disabled")
		return &MetricsClient{enabled: false}
	}

	if err := setupGoogleCloudCredentials(); err != nil {
		utils.Warn("Failed to setup Google Cloud credentials: %v", err)
		utils.Warn("Telemetry disabled")
		return &MetricsClient{enabled: false}
	}

	client, err := monitoring.NewMetricClient(context.Background())
	if err != nil {
		utils.Warn("Failed to create monitoring client: %v", err)
		utils.Warn("Telemetry disabled")
		return &MetricsClient{enabled: false}
	}

	utils.Info("Google Cloud Monitoring telemetry enabled for project: %s", projectID)
	return &MetricsClient{
		client:    client,
		projectID: projectID,
		enabled:   true,
	}
}

// SendCommandMetric counts one bot command invocation.
func (m *MetricsClient) SendCommandMetric(command string, isAdmin bool) {
	if !m.enabled {
		return
	}

	ctx := context.Background()
	now := &timestamppb.Timestamp{Seconds: time.Now().Unix()}

	if err := m.sendLabeledMetric(ctx, "fatebot/commands/usage", 1.0, now, map[string]string{
		"command":  command,
		"is_admin": fmt.Sprintf("%t", isAdmin),
	}); err != nil {
		utils.Warn("Failed to send command metric: %v", err)
		return
	}

	utils.Debug("Command metric sent: %s (admin: %t)", command, isAdmin)
}

// SendEventMetric counts one roster action or a finalization, with the
// participant count for the latter.
func (m *MetricsClient) SendEventMetric(kind string, count int) {
	if !m.enabled {
		return
	}

	ctx := context.Background()
	now := &timestamppb.Timestamp{Seconds: time.Now().Unix()}

	if err := m.sendLabeledMetric(ctx, "fatebot/events/actions", 1.0, now, map[string]string{
		"kind": kind,
	}); err != nil {
		utils.Warn("Failed to send event action metric: %v", err)
	}

	if kind == "finalized" {
		if err := m.sendCustomMetric(ctx, "fatebot/events/participants", float64(count), now); err != nil {
			utils.Warn("Failed to send participant count metric: %v", err)
		}
	}

	utils.Debug("Event metric sent: %s (count: %d)", kind, count)
}

// SendPerformanceMetric reports an operation's latency and outcome.
func (m *MetricsClient) SendPerformanceMetric(operation string, duration time.Duration, success bool) {
	if !m.enabled {
		return
	}

	ctx := context.Background()
	now := &timestamppb.Timestamp{Seconds: time.Now().Unix()}

	if err := m.sendLabeledMetric(ctx, "fatebot/performance/duration", duration.Seconds(), now, map[string]string{
		"operation": operation,
		"success":   fmt.Sprintf("%t", success),
	}); err != nil {
		utils.Warn("Failed to send performance duration metric: %v", err)
	}

	successValue := 0.0
	if success {
		successValue = 1.0
	}
	if err := m.sendLabeledMetric(ctx, "fatebot/performance/success_rate", successValue, now, map[string]string{
		"operation": operation,
	}); err != nil {
		utils.Warn("Failed to send success rate metric: %v", err)
	}

	utils.Debug("Performance metric sent: %s (duration: %v, success: %t)", operation, duration, success)
}

func (m *MetricsClient) sendCustomMetric(ctx context.Context, metricType string, value float64, timestamp *timestamppb.Timestamp) error {
	return m.sendLabeledMetric(ctx, metricType, value, timestamp, nil)
}

func (m *MetricsClient) sendLabeledMetric(ctx context.Context, metricType string, value float64, timestamp *timestamppb.Timestamp, labels map[string]string) error {
	if labels == nil {
		labels = make(map[string]string)
	}

	req := &monitoringpb.CreateTimeSeriesRequest{
		Name: fmt.Sprintf("projects/%s", m.projectID),
		TimeSeries: []*monitoringpb.TimeSeries{
			{
				Metric: &metric.Metric{
					Type:   fmt.Sprintf("custom.googleapis.com/%s", metricType),
					Labels: labels,
				},
				Resource: &monitoredres.MonitoredResource{
					Type: "generic_task",
					Labels: map[string]string{
						"project_id": m.projectID,
						"location":   "global",
						"namespace":  "fatebot",
						"job":        "event-bot",
						"task_id":    "main",
					},
				},
				Points: []*monitoringpb.Point{
					{
						Interval: &monitoringpb.TimeInterval{
							EndTime: timestamp,
						},
						Value: &monitoringpb.TypedValue{
							Value: &monitoringpb.TypedValue_DoubleValue{
								DoubleValue: value,
							},
						},
					},
				},
			},
		},
	}

	return m.client.CreateTimeSeries(ctx, req)
}

// Close releases the monitoring client.
func (m *MetricsClient) Close() error {
	if !m.enabled || m.client == nil {
		return nil
	}
	return m.client.Close()
}

// setupGoogleCloudCredentials points GOOGLE_APPLICATION_CREDENTIALS at
// the service-account JSON from the environment, via a temp file.
func setupGoogleCloudCredentials() error {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		return nil
	}

	creds := os.Getenv(constants.EnvFirebaseCreds)
	if creds == "" {
		return fmt.Errorf("neither GOOGLE_APPLICATION_CREDENTIALS nor %s is set", constants.EnvFirebaseCreds)
	}

	credFile := filepath.Join(os.TempDir(), "fatebot-gcloud-credentials.json")
	if err := os.WriteFile(credFile, []byte(creds), 0600); err != nil {
		return fmt.Errorf("failed to write temporary credentials file: %v", err)
	}
	os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", credFile)

	utils.Debug("Created temporary Google Cloud credentials file: %s", credFile)
	return nil
}
