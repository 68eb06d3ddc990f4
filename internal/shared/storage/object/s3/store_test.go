package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/file.pdf", want: "root/user/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "user/file.pdf", want: "root/sub/user/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, params)
	f.objects[aws.ToString(params.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func TestSaveAndOpenRoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	store := NewWithClient(fake, "bucket", "/uploads/", "")
	body := "%PDF-1.4 resume"

	key, size, mime, err := store.Save(context.Background(), "user-1", "cv.pdf", strings.NewReader(body))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if size != int64(len(body)) || mime != "application/pdf" {
		t.Fatalf("unexpected size=%d mime=%s", size, mime)
	}
	if !strings.HasPrefix(key, "resumes/") {
		t.Fatalf("expected resumes namespace, got %s", key)
	}
	put := fake.puts[0]
	if !strings.HasPrefix(aws.ToString(put.Key), "uploads/resumes/") {
		t.Fatalf("expected prefixed object key, got %s", aws.ToString(put.Key))
	}
	if put.ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256 encryption, got %s", put.ServerSideEncryption)
	}

	rc, err := store.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != body {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestSaveUsesKMSKeyWhenSet(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	store := NewWithClient(fake, "bucket", "", "kms-1")
	if _, _, _, err := store.Save(context.Background(), "u", "cv.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	put := fake.puts[0]
	if put.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(put.SSEKMSKeyId) != "kms-1" {
		t.Fatalf("expected kms encryption, got %s %s", put.ServerSideEncryption, aws.ToString(put.SSEKMSKeyId))
	}
}

func TestOpenMissingWrapsNotExist(t *testing.T) {
	store := NewWithClient(&fakeS3{objects: map[string][]byte{}}, "bucket", "", "")
	if _, err := store.Open(context.Background(), "resumes/x/missing.pdf"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestSaveRejectsTraversal(t *testing.T) {
	store := NewWithClient(&fakeS3{objects: map[string][]byte{}}, "bucket", "", "")
	if _, _, _, err := store.Save(context.Background(), "u", "../cv.pdf", strings.NewReader("x")); err == nil {
		t.Fatalf("expected error for traversal name")
	}
}
