// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/tomtom215/honeytrace/internal/logging"
)

// callerAccountRetries bounds retries for the caller-identity lookup, the
// one idempotent read this client performs.
const callerAccountRetries = 3

// AWSConfig holds AWS provider settings.
type AWSConfig struct {
	// Region is the AWS region for IAM/STS calls.
	Region string `koanf:"region"`

	// GroupName is the IAM group honey users are placed in. The group's
	// policy is expected to deny everything; membership only marks the
	// principal as a decoy.
	GroupName string `koanf:"group_name"`

	// TagKey marks honey users so operators can tell decoys from real
	// principals in the IAM console.
	TagKey string `koanf:"tag_key"`
}

// AWSProvider implements IdentityProvider on AWS IAM and STS.
type AWSProvider struct {
	iam       *iam.Client
	sts       *sts.Client
	groupName string
	tagKey    string
}

// NewAWS constructs a provider from an already-loaded aws.Config.
func NewAWS(cfg aws.Config, pc AWSConfig) *AWSProvider {
	return &AWSProvider{
		iam:       iam.NewFromConfig(cfg),
		sts:       sts.NewFromConfig(cfg),
		groupName: pc.GroupName,
		tagKey:    pc.TagKey,
	}
}

// ConnectAWS loads the default AWS credential chain and constructs the
// provider. Called once at startup; the client is shared afterwards.
func ConnectAWS(ctx context.Context, pc AWSConfig) (*AWSProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(pc.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewAWS(cfg, pc), nil
}

// CreateUser creates the IAM user tagged as a honey user.
func (p *AWSProvider) CreateUser(ctx context.Context, username string) error {
	_, err := p.iam.CreateUser(ctx, &iam.CreateUserInput{
		UserName: aws.String(username),
		Tags: []iamtypes.Tag{
			{Key: aws.String(p.tagKey), Value: aws.String("true")},
		},
	})
	if err != nil {
		return fmt.Errorf("create user %s: %w", username, err)
	}
	return nil
}

// DeleteUser removes the IAM user.
func (p *AWSProvider) DeleteUser(ctx context.Context, username string) error {
	_, err := p.iam.DeleteUser(ctx, &iam.DeleteUserInput{
		UserName: aws.String(username),
	})
	if err != nil {
		return mapIAMError(fmt.Sprintf("delete user %s", username), err)
	}
	return nil
}

// AddUserToGroup attaches the user to the honey-user group.
func (p *AWSProvider) AddUserToGroup(ctx context.Context, username string) error {
	_, err := p.iam.AddUserToGroup(ctx, &iam.AddUserToGroupInput{
		UserName:  aws.String(username),
		GroupName: aws.String(p.groupName),
	})
	if err != nil {
		return fmt.Errorf("add user %s to group %s: %w", username, p.groupName, err)
	}
	return nil
}

// RemoveUserFromGroup detaches the user from the honey-user group.
func (p *AWSProvider) RemoveUserFromGroup(ctx context.Context, username string) error {
	_, err := p.iam.RemoveUserFromGroup(ctx, &iam.RemoveUserFromGroupInput{
		UserName:  aws.String(username),
		GroupName: aws.String(p.groupName),
	})
	if err != nil {
		return mapIAMError(fmt.Sprintf("remove user %s from group %s", username, p.groupName), err)
	}
	return nil
}

// CreateAccessKey issues a fresh access key for the user.
func (p *AWSProvider) CreateAccessKey(ctx context.Context, username string) (*AccessKey, error) {
	out, err := p.iam.CreateAccessKey(ctx, &iam.CreateAccessKeyInput{
		UserName: aws.String(username),
	})
	if err != nil {
		return nil, fmt.Errorf("create access key for %s: %w", username, err)
	}
	return &AccessKey{
		AccessKeyID:     aws.ToString(out.AccessKey.AccessKeyId),
		SecretAccessKey: aws.ToString(out.AccessKey.SecretAccessKey),
	}, nil
}

// DeleteAccessKey revokes an access key.
func (p *AWSProvider) DeleteAccessKey(ctx context.Context, username, accessKeyID string) error {
	_, err := p.iam.DeleteAccessKey(ctx, &iam.DeleteAccessKeyInput{
		UserName:    aws.String(username),
		AccessKeyId: aws.String(accessKeyID),
	})
	if err != nil {
		return mapIAMError(fmt.Sprintf("delete access key %s", accessKeyID), err)
	}
	return nil
}

// CallerAccount returns the AWS account ID via STS, retrying transient
// failures a bounded number of times.
func (p *AWSProvider) CallerAccount(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt < callerAccountRetries; attempt++ {
		out, err := p.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err == nil {
			return aws.ToString(out.Account), nil
		}
		lastErr = err
		logging.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Msg("get caller identity failed")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
		}
	}
	return "", fmt.Errorf("get caller identity: %w", lastErr)
}

// mapIAMError converts IAM's no-such-entity failure into ErrNotFound so
// deletion paths can treat it as already done.
func mapIAMError(op string, err error) error {
	var notFound *iamtypes.NoSuchEntityException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
