package provisioner

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/emr"
	"github.com/aws/aws-sdk-go-v2/service/emr/types"
	"github.com/aws/smithy-go"

	"github.com/dsyorkd/emr-controller/internal/errors"
	"github.com/dsyorkd/emr-controller/internal/logger"
)

// EMRConfig holds the settings needed to build the EMR client.
type EMRConfig struct {
	Region  string
	Profile string

	// Static credentials override the default chain when both are set.
	AccessKeyID     string
	SecretAccessKey string

	MasterInstanceType string
	WorkerInstanceType string
	ServiceRole        string
	JobFlowRole        string
}

// EMRProvisioner implements Provisioner against AWS EMR.
type EMRProvisioner struct {
	client *emr.Client
	config EMRConfig
	logger logger.Interface
}

var _ Provisioner = (*EMRProvisioner)(nil)

// NewEMR creates an EMR-backed provisioner using the AWS SDK's default
// credential chain unless explicit credentials are configured.
func NewEMR(ctx context.Context, cfg EMRConfig, log logger.Interface) (*EMRProvisioner, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS configuration")
	}

	return &EMRProvisioner{
		client: emr.NewFromConfig(awsCfg),
		config: cfg,
		logger: log.WithField("component", "emr-provisioner"),
	}, nil
}

// Start launches a jobflow and returns its ID. Failures are never
// retried here; the caller decides whether the attempt is fatal.
func (p *EMRProvisioner) Start(ctx context.Context, req StartRequest) (string, error) {
	instances := &types.JobFlowInstancesConfig{
		InstanceCount:               aws.Int32(int32(req.Size)),
		MasterInstanceType:          aws.String(p.config.MasterInstanceType),
		KeepJobFlowAliveWhenNoSteps: aws.Bool(true),
	}
	if req.Size > 1 {
		instances.SlaveInstanceType = aws.String(p.config.WorkerInstanceType)
	}

	input := &emr.RunJobFlowInput{
		Name:         aws.String(req.Identifier),
		ReleaseLabel: aws.String(releaseLabel(req.EMRRelease)),
		Instances:    instances,
		Applications: []types.Application{
			{Name: aws.String("Spark")},
			{Name: aws.String("Zeppelin")},
		},
		ServiceRole:       aws.String(p.config.ServiceRole),
		JobFlowRole:       aws.String(p.config.JobFlowRole),
		VisibleToAllUsers: aws.Bool(true),
		Tags: []types.Tag{
			{Key: aws.String("Application"), Value: aws.String("emr-controller")},
			{Key: aws.String("Owner"), Value: aws.String(req.Owner)},
			{Key: aws.String("OwnerEmail"), Value: aws.String(req.OwnerEmail)},
			{Key: aws.String("Identifier"), Value: aws.String(req.Identifier)},
		},
	}
	if req.PublicKey != "" {
		input.BootstrapActions = []types.BootstrapActionConfig{{
			Name: aws.String("setup-ssh-access"),
			ScriptBootstrapAction: &types.ScriptBootstrapActionConfig{
				Path: aws.String("file:///usr/share/emr-controller/bootstrap/setup-ssh.sh"),
				Args: []string{"--public-key", req.PublicKey},
			},
		}}
	}

	out, err := p.client.RunJobFlow(ctx, input)
	if err != nil {
		return "", errors.NewProvisionerError("start", "", isTransient(err), err)
	}
	if out.JobFlowId == nil {
		return "", errors.NewProvisionerError("start", "", false,
			fmt.Errorf("backend returned no jobflow id"))
	}

	p.logger.WithFields(map[string]interface{}{
		"jobflow_id": *out.JobFlowId,
		"identifier": req.Identifier,
		"size":       req.Size,
	}).Info("Started EMR cluster")
	return *out.JobFlowId, nil
}

// Info fetches a fresh status snapshot for the given jobflow.
func (p *EMRProvisioner) Info(ctx context.Context, jobflowID string) (*ClusterInfo, error) {
	out, err := p.client.DescribeCluster(ctx, &emr.DescribeClusterInput{
		ClusterId: aws.String(jobflowID),
	})
	if err != nil {
		return nil, errors.NewProvisionerError("describe", jobflowID, isTransient(err), err)
	}
	if out.Cluster == nil || out.Cluster.Status == nil {
		return nil, errors.NewProvisionerError("describe", jobflowID, true,
			fmt.Errorf("backend returned no cluster status"))
	}

	status := out.Cluster.Status
	info := &ClusterInfo{
		State:     string(status.State),
		PublicDNS: out.Cluster.MasterPublicDnsName,
	}
	if status.StateChangeReason != nil {
		info.StateChangeReason = string(status.StateChangeReason.Code)
	}
	if timeline := status.Timeline; timeline != nil {
		info.CreationDateTime = timeline.CreationDateTime
		info.ReadyDateTime = timeline.ReadyDateTime
		info.EndDateTime = timeline.EndDateTime
	}
	return info, nil
}

// Stop requests termination of the given jobflow. EMR treats repeated
// termination requests as a no-op, so Stop is idempotent.
func (p *EMRProvisioner) Stop(ctx context.Context, jobflowID string) error {
	_, err := p.client.TerminateJobFlows(ctx, &emr.TerminateJobFlowsInput{
		JobFlowIds: []string{jobflowID},
	})
	if err != nil {
		return errors.NewProvisionerError("stop", jobflowID, isTransient(err), err)
	}
	p.logger.WithField("jobflow_id", jobflowID).Info("Requested EMR cluster termination")
	return nil
}

// releaseLabel converts a catalog version like "5.11.0" into the EMR
// release label form "emr-5.11.0". Labels already carrying the prefix
// pass through.
func releaseLabel(version string) string {
	if strings.HasPrefix(version, "emr-") {
		return version
	}
	return "emr-" + version
}

// isTransient classifies a backend error as retryable on the next
// scheduled cycle. Server faults, throttling and cancelled/timed-out
// calls are transient; client faults (bad input, missing cluster) are not.
func isTransient(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return true
	}
	var ae smithy.APIError
	if stderrors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ThrottlingException", "RequestLimitExceeded", "InternalServerError", "ServiceUnavailable":
			return true
		}
		return ae.ErrorFault() == smithy.FaultServer
	}
	// Plain transport errors (connection reset, DNS) arrive unwrapped.
	return true
}
