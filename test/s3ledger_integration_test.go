//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
	miniotc "github.com/testcontainers/testcontainers-go/modules/minio"

	"github.com/ledgerchat/channelengine/internal/channel"
	"github.com/ledgerchat/channelengine/internal/cipher"
	"github.com/ledgerchat/channelengine/internal/group"
	"github.com/ledgerchat/channelengine/internal/ledgerstore/s3ledger"
)

const (
	minioAccessKey = "minioadmin"
	minioSecretKey = "minioadmin"
)

// startMinio brings up a real S3-compatible MinIO container via
// testcontainers, so no external binary needs to be present on the
// test runner.
func startMinio(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := miniotc.Run(ctx, "minio/minio:RELEASE.2024-01-16T16-07-38Z",
		miniotc.WithUsername(minioAccessKey),
		miniotc.WithPassword(minioSecretKey),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	return "http://" + endpoint
}

// TestS3Ledger_ChannelEndToEnd mirrors TestRedisLedger_ChannelEndToEnd
// against the S3-compatible backend, confirming the engine's backend
// abstraction (ledgerstore.Store) is actually interchangeable, not just
// declared so.
func TestS3Ledger_ChannelEndToEnd(t *testing.T) {
	endpoint := startMinio(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const bucket = "ledgerchat-test"
	createTestBucket(ctx, t, endpoint, bucket)

	ledger, err := s3ledger.New(ctx, s3ledger.Config{
		Region:    "us-east-1",
		AccessKey: minioAccessKey,
		SecretKey: minioSecretKey,
		Endpoint:  endpoint,
		Provider:  "minio",
		Bucket:    bucket,
	})
	require.NoError(t, err)

	var secret [32]byte
	copy(secret[:], []byte("0123456789abcdef0123456789abcde"))
	aead, err := cipher.NewAESGCM(secret)
	require.NoError(t, err)

	var aliceID, bobID channel.CorrespondentID
	aliceID[0], bobID[0] = 3, 4

	alice, err := group.New(group.Config{
		Ledger: ledger, Cipher: aead,
		SelfID: aliceID, Others: []channel.CorrespondentID{bobID},
		SharedSecret: secret, Context: []byte("s3-integration"),
	})
	require.NoError(t, err)

	bob, err := group.New(group.Config{
		Ledger: ledger, Cipher: aead,
		SelfID: bobID, Others: []channel.CorrespondentID{aliceID},
		SharedSecret: secret, Context: []byte("s3-integration"),
	})
	require.NoError(t, err)

	require.NoError(t, alice.Send(ctx, []byte("hello over a real s3-compatible backend")))

	msg, ok, err := bob.ReceiveNextFor(ctx, alice.SelfIndex())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello over a real s3-compatible backend", string(msg.Bytes))
}

// createTestBucket provisions the bucket s3ledger.Store assumes already
// exists; unlike the reference account-per-bucket S3 gateway this
// engine leaves bucket lifecycle to the operator, so the test sets one
// up directly against the MinIO API.
func createTestBucket(ctx context.Context, t *testing.T, endpoint, bucket string) {
	t.Helper()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(minioAccessKey, minioSecretKey, "")),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)
}
