package utils

import (
	"context"
	"fmt"
	"io"
	"path"

	storage "github.com/supabase-community/storage-go"
)

// SupabaseUploader stores files in a Supabase storage bucket.
type SupabaseUploader struct {
	client *storage.Client
	bucket string
}

func NewSupabaseUploader(supabaseURL, key, bucket string) *SupabaseUploader {
	return &SupabaseUploader{
		client: storage.NewClient(supabaseURL+"/storage/v1", key, nil),
		bucket: bucket,
	}
}

// Upload writes r under folder/fileID+ext and returns the public URL.
func (u *SupabaseUploader) Upload(_ context.Context, folder, fileID, fileName, contentType string, r io.Reader) (string, error) {
	objectPath := fileID + path.Ext(fileName)
	if folder != "" {
		objectPath = folder + "/" + objectPath
	}

	upsert := true
	options := storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}

	if _, err := u.client.UploadFile(u.bucket, objectPath, r, options); err != nil {
		return "", fmt.Errorf("supabase upload %s: %w", objectPath, err)
	}

	publicURL := u.client.GetPublicUrl(u.bucket, objectPath)
	return publicURL.SignedURL, nil
}
