package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const MaxFileSize = 5 * 1024 * 1024 // 5MB

var (
	s3Client   *s3.Client
	bucketName string
	region     string

	allowedTypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
	}
)

func InitStorage() error {
	bucketName = os.Getenv("AWS_BUCKET_NAME")
	if bucketName == "" {
		bucketName = "slotmarket-images"
	}
	region = os.Getenv("AWS_REGION")
	if region == "" {
		region = "eu-central-1"
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, os.Getenv("AWS_SECRET_ACCESS_KEY"), ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %v", err)
	}

	s3Client = s3.NewFromConfig(cfg)
	return nil
}

// UploadListingImage validates, re-encodes and uploads a listing
// photo, returning its public URL.
func UploadListingImage(file *multipart.FileHeader, ownerID uint, listingID uint) (string, error) {
	if file.Size > MaxFileSize {
		return "", fmt.Errorf("file size too large. Maximum size is %d bytes", MaxFileSize)
	}

	contentType := file.Header.Get("Content-Type")
	if !allowedTypes[contentType] {
		return "", fmt.Errorf("invalid file type. Allowed types are: jpeg, png")
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	img, format, err := image.Decode(src)
	if err != nil {
		return "", fmt.Errorf("could not decode image: %v", err)
	}

	buf := new(bytes.Buffer)
	switch format {
	case "jpeg":
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: 85})
	case "png":
		err = png.Encode(buf, img)
	default:
		return "", fmt.Errorf("unsupported image format: %s", format)
	}
	if err != nil {
		return "", fmt.Errorf("could not encode image: %v", err)
	}

	// owner_id/listing_id/timestamp_original_name
	fileName := fmt.Sprintf("%d/%d/%d_%s",
		ownerID,
		listingID,
		time.Now().Unix(),
		filepath.Base(file.Filename),
	)

	_, err = s3Client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(bucketName),
		Key:         aws.String(fileName),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("could not upload to S3: %v", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucketName, region, fileName), nil
}

// DeleteImage removes an uploaded image by its public URL.
func DeleteImage(imageURL string) error {
	parts := strings.Split(imageURL, "/")
	key := strings.Join(parts[3:], "/")

	_, err := s3Client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	})

	return err
}
