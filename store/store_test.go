package store

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/image/tiff"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 40), uint8(y * 60), 100, 255})
		}
	}
	return img
}

func checkDecoded(t *testing.T, r io.Reader, want *image.RGBA) {
	t.Helper()
	got, err := tiff.Decode(r)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Bounds() != want.Bounds() {
		t.Fatalf("bounds = %v, want %v", got.Bounds(), want.Bounds())
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			g := color.RGBAModel.Convert(got.At(x, y)).(color.RGBA)
			if w := want.RGBAAt(x, y); g != w {
				t.Errorf("pixel (%d, %d) = %v, want %v", x, y, g, w)
			}
		}
	}
}

func TestFSStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	s := NewFSStore(dir)
	img := testImage()
	if err := s.Save(context.Background(), "mosaic.tif", img); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := os.Open(s.Path("mosaic.tif"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	checkDecoded(t, f, img)
}

func TestFSStore_Canceled(t *testing.T) {
	s := NewFSStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Save(ctx, "mosaic.tif", testImage()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// fakeS3 records the calls of S3Store.
type fakeS3 struct {
	headErr error
	created []string
	puts    []*s3.PutObjectInput
	putBody [][]byte
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeS3) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = append(f.created, aws.ToString(params.Bucket))
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, params)
	f.putBody = append(f.putBody, body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	client := &fakeS3{}
	s := NewS3Store(client, S3Config{Bucket: "mosaics", Prefix: "runs/1"})
	s.Metadata["run-id"] = "abc"
	img := testImage()
	if err := s.Save(context.Background(), "dest_src_30_l.tif", img); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.puts) != 1 {
		t.Fatalf("got %d uploads, want 1", len(client.puts))
	}
	put := client.puts[0]
	if got := aws.ToString(put.Key); got != "runs/1/dest_src_30_l.tif" {
		t.Errorf("key = %s", got)
	}
	if got := aws.ToString(put.Bucket); got != "mosaics" {
		t.Errorf("bucket = %s", got)
	}
	if got := aws.ToString(put.ContentType); got != "image/tiff" {
		t.Errorf("content type = %s", got)
	}
	if put.Metadata["run-id"] != "abc" {
		t.Errorf("metadata = %v", put.Metadata)
	}
	if got := aws.ToInt64(put.ContentLength); got != int64(len(client.putBody[0])) {
		t.Errorf("content length = %d, body has %d bytes", got, len(client.putBody[0]))
	}
	checkDecoded(t, bytes.NewReader(client.putBody[0]), img)
}

func TestS3Store_EnsureBucket(t *testing.T) {
	existing := &fakeS3{}
	if err := NewS3Store(existing, S3Config{Bucket: "b"}).EnsureBucket(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(existing.created) != 0 {
		t.Errorf("existing bucket was created again")
	}

	missing := &fakeS3{headErr: errors.New("not found")}
	if err := NewS3Store(missing, S3Config{Bucket: "b"}).EnsureBucket(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missing.created) != 1 || missing.created[0] != "b" {
		t.Errorf("created = %v, want [b]", missing.created)
	}
}

func TestS3StoreKey(t *testing.T) {
	if got := (&S3Store{}).Key("a.tif"); got != "a.tif" {
		t.Errorf("key = %s, want a.tif", got)
	}
	if got := (&S3Store{Prefix: "x/"}).Key("a.tif"); got != "x/a.tif" {
		t.Errorf("key = %s, want x/a.tif", got)
	}
}
