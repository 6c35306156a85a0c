package objstore

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"

	"github.com/trezcool/mwalimu/core"
)

// S3Store deletes objects from an S3 compatible bucket.
type S3Store struct {
	client s3iface.S3API
	bucket string
}

var _ core.ObjectStore = (*S3Store)(nil)

func NewS3Store(conf *core.Config) (*S3Store, error) {
	awsConf := &aws.Config{
		Region:           aws.String(conf.Storage.Region),
		Credentials:      credentials.NewStaticCredentials(conf.Storage.AccessKey, conf.Storage.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}
	if conf.Storage.Endpoint != "" {
		awsConf.Endpoint = aws.String(conf.Storage.Endpoint)
	}
	sess, err := session.NewSession(awsConf)
	if err != nil {
		return nil, errors.Wrap(err, "creating S3 session")
	}
	return NewS3StoreWithClient(s3.New(sess), conf.Storage.Bucket), nil
}

func NewS3StoreWithClient(client s3iface.S3API, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func (st *S3Store) DeleteObject(ctx context.Context, key string) error {
	_, err := st.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrapf(err, "deleting object %q", key)
	}
	return nil
}
