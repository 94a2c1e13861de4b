package s3archive

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "ingestgate/pkg/platform/audit"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestArchiveWrite(t *testing.T) {
	client := &fakeS3{}
	now := time.Date(2026, 7, 9, 14, 30, 0, 0, time.UTC)
	a := New(client, "audit-bucket", "/security/", WithClock(func() time.Time { return now }))

	err := a.Write(context.Background(), []audit.SecurityEvent{
		{Kind: audit.KindMissingCredential, IP: "198.51.100.1"},
		{Kind: audit.KindRateLimitExceeded, IP: "198.51.100.1", Detail: "credential"},
	})
	require.NoError(t, err)

	require.NotNil(t, client.input)
	assert.Equal(t, "audit-bucket", aws.ToString(client.input.Bucket))
	key := aws.ToString(client.input.Key)
	assert.True(t, strings.HasPrefix(key, "security/2026/07/09/14/"), key)
	assert.True(t, strings.HasSuffix(key, ".jsonl.gz"), key)
	assert.Equal(t, "gzip", aws.ToString(client.input.ContentEncoding))

	zr, err := gzip.NewReader(bytes.NewReader(client.body))
	require.NoError(t, err)
	var kinds []string
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		var r audit.Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		kinds = append(kinds, r.Kind)
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []string{string(audit.KindMissingCredential), string(audit.KindRateLimitExceeded)}, kinds)
}

func TestArchiveWriteError(t *testing.T) {
	a := New(&fakeS3{err: errors.New("access denied")}, "b", "")
	err := a.Write(context.Background(), []audit.SecurityEvent{{Kind: audit.KindInvalidJSON}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
