// Package s3 enumerates buckets on S3-compatible endpoints (AWS, Wasabi,
// anything minio-go can talk to) and emits observation records for the
// reconciler. The api scan endpoints drive it; the inventory package never
// imports it.
package s3

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/quarterhill/stratus/internal/canonical"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Endpoint describes one S3-compatible account to scan.
type Endpoint struct {
	URL            string
	Region         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	ForcePathStyle bool
}

type Client struct{ mc *minio.Client }

func normalizeEndpoint(endpoint string, useSSL bool) (host string, secure bool) {
	secure = useSSL
	if endpoint == "" {
		return "", secure
	}
	// If endpoint contains scheme, parse and strip it; prefer scheme over useSSL flag
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		if u, err := url.Parse(endpoint); err == nil {
			if u.Scheme == "https" {
				secure = true
			} else if u.Scheme == "http" {
				secure = false
			}
			return u.Host, secure
		}
	}
	return endpoint, secure
}

func New(ep Endpoint) (*Client, error) {
	host, secure := normalizeEndpoint(ep.URL, ep.UseSSL)
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(ep.AccessKey, ep.SecretKey, ""),
		Secure: secure,
		Region: ep.Region,
	}
	if ep.ForcePathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	mc, err := minio.New(host, opts)
	if err != nil {
		return nil, err
	}
	return &Client{mc: mc}, nil
}

// ListBuckets returns the raw bucket listing of the endpoint.
func (c *Client) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	return c.mc.ListBuckets(ctx)
}

// measureBucket walks the bucket and totals object sizes. Expensive on large
// buckets; callers gate it behind scan configuration.
func (c *Client) measureBucket(ctx context.Context, bucket string) (sizeBytes, objectCount int64, err error) {
	for obj := range c.mc.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return 0, 0, obj.Err
		}
		sizeBytes += obj.Size
		objectCount++
	}
	return sizeBytes, objectCount, nil
}

// ObserveAWSBuckets produces one observation per bucket. When measure is set
// each bucket is walked for size and object count; a per-bucket failure lands
// in the observation's LastError instead of aborting the scan.
func (c *Client) ObserveAWSBuckets(ctx context.Context, measure bool) ([]canonical.AWSBucket, error) {
	infos, err := c.mc.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]canonical.AWSBucket, 0, len(infos))
	for _, info := range infos {
		obs := canonical.AWSBucket{BucketName: info.Name}
		if !info.CreationDate.IsZero() {
			created := info.CreationDate.UTC().Format(time.RFC3339)
			obs.CreatedAt = &created
		}
		if measure {
			size, count, err := c.measureBucket(ctx, info.Name)
			if err != nil {
				msg := err.Error()
				obs.LastError = &msg
			} else {
				obs.UsageBytes = &size
				obs.ObjectCount = &count
				src := "list"
				obs.SizeSource = &src
				mode := "full"
				obs.ScanMode = &mode
			}
		}
		out = append(out, obs)
	}
	return out, nil
}

// ObserveWasabiBuckets is the Wasabi-shaped variant of ObserveAWSBuckets.
func (c *Client) ObserveWasabiBuckets(ctx context.Context, measure bool) ([]canonical.WasabiBucket, error) {
	infos, err := c.mc.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]canonical.WasabiBucket, 0, len(infos))
	for _, info := range infos {
		obs := canonical.WasabiBucket{BucketName: info.Name}
		if !info.CreationDate.IsZero() {
			created := info.CreationDate.UTC().Format(time.RFC3339)
			obs.CreatedAt = &created
		}
		if measure {
			size, count, err := c.measureBucket(ctx, info.Name)
			if err != nil {
				msg := err.Error()
				obs.LastError = &msg
			} else {
				obs.UsageBytes = &size
				obs.ObjectCount = &count
			}
		}
		out = append(out, obs)
	}
	return out, nil
}
