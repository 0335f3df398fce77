package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PathPrefix is prepended to every stored file id
const PathPrefix = "responses/"

// StoredFile is what a file answer records about an upload
type StoredFile struct {
	Path         string
	OriginalName string
}

// BlobStore keeps uploaded answer files
type BlobStore interface {
	Put(ctx context.Context, originalName, contentType string, r io.Reader) (*StoredFile, error)
	Open(ctx context.Context, path string) (io.ReadCloser, string, error)
}

type gridFSStore struct {
	bucket *gridfs.Bucket
}

// NewGridFSStore creates a blob store backed by the "responses" GridFS bucket
func NewGridFSStore(db *mongo.Database) (BlobStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName("responses"))
	if err != nil {
		return nil, err
	}
	return &gridFSStore{bucket: bucket}, nil
}

func (s *gridFSStore) Put(ctx context.Context, originalName, contentType string, r io.Reader) (*StoredFile, error) {
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})

	stream, err := s.bucket.OpenUploadStream(originalName, opts)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	if deadline, ok := ctx.Deadline(); ok {
		if err := stream.SetWriteDeadline(deadline); err != nil {
			return nil, err
		}
	}

	if _, err := io.Copy(stream, r); err != nil {
		_ = stream.Abort()
		return nil, err
	}

	oid, ok := stream.FileID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected file id type %T", stream.FileID)
	}
	return &StoredFile{Path: PathPrefix + oid.Hex(), OriginalName: originalName}, nil
}

// Open returns the stored bytes and the content type recorded at upload
func (s *gridFSStore) Open(ctx context.Context, path string) (io.ReadCloser, string, error) {
	oid, err := ParsePath(path)
	if err != nil {
		return nil, "", err
	}

	stream, err := s.bucket.OpenDownloadStream(oid)
	if err == gridfs.ErrFileNotFound {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(deadline)
	}

	contentType := "application/octet-stream"
	var meta struct {
		ContentType string `bson:"contentType"`
	}
	if raw := stream.GetFile().Metadata; raw != nil {
		if err := bson.Unmarshal(raw, &meta); err == nil && meta.ContentType != "" {
			contentType = meta.ContentType
		}
	}
	return stream, contentType, nil
}

// ErrNotFound is returned by Open for unknown paths
var ErrNotFound = fmt.Errorf("file not found")

// ParsePath extracts the GridFS id from a stored path. A bare hex id is
// accepted too.
func ParsePath(path string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimPrefix(path, PathPrefix))
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}
