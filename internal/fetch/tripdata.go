// Package fetch downloads the public Citi Bike tripdata archives. The bucket
// is world-readable, so the S3 client runs with anonymous credentials.
package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/schollz/progressbar/v3"
)

var yearPattern = regexp.MustCompile(`20\d{2}`)

type Downloader struct {
	client *s3.Client
	bucket string
	base   string
}

// NewDownloader builds an anonymous S3 client for the tripdata bucket. base
// is the raw_data/citi_bike directory that receives year folders.
func NewDownloader(ctx context.Context, bucket, region, base string) (*Downloader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	cfg.Credentials = aws.AnonymousCredentials{}

	return &Downloader{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		base:   base,
	}, nil
}

// Run lists, downloads, and extracts the archives for the given years.
// Existing non-empty files are skipped so re-runs are cheap.
func (d *Downloader) Run(ctx context.Context, years []int) error {
	keys, err := d.listZipKeys(ctx, years)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("no matching tripdata archives found in bucket %s", d.bucket)
	}

	for _, key := range keys {
		year, err := extractYear(key)
		if err != nil {
			log.Printf("Skipping %s: %v", key, err)
			continue
		}
		destDir := filepath.Join(d.base, fmt.Sprintf("%d-citibike-tripdata", year))
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return err
		}
		zipPath, err := d.downloadZip(ctx, key, destDir)
		if err != nil {
			log.Printf("Download failed for %s: %v", key, err)
			continue
		}
		if err := extractZip(zipPath, destDir); err != nil {
			log.Printf("Extract failed for %s: %v", zipPath, err)
		}
	}
	return nil
}

// listZipKeys lists the bucket per year prefix and keeps citibike-tripdata
// zip archives. A failed listing for one year logs and moves on.
func (d *Downloader) listZipKeys(ctx context.Context, years []int) ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string
	for _, year := range years {
		prefix := strconv.Itoa(year)
		paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(d.bucket),
			Prefix: aws.String(prefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				log.Printf("Could not list bucket for %d: %v", year, err)
				break
			}
			for _, obj := range page.Contents {
				key := aws.ToString(obj.Key)
				if !strings.Contains(key, "citibike-tripdata") {
					continue
				}
				if !strings.HasSuffix(strings.ToLower(key), ".zip") {
					continue
				}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func (d *Downloader) downloadZip(ctx context.Context, key, destDir string) (string, error) {
	destPath := filepath.Join(destDir, path.Base(key))
	if fileExistsNonEmpty(destPath) {
		log.Printf("Skip download (already present): %s", destPath)
		return destPath, nil
	}

	log.Printf("Downloading s3://%s/%s", d.bucket, key)
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	tmpPath := destPath + ".partial"
	file, err := os.Create(tmpPath)
	if err != nil {
		return "", err
	}

	bar := progressbar.DefaultBytes(aws.ToInt64(out.ContentLength), path.Base(key))
	if _, err := io.Copy(io.MultiWriter(file, bar), out.Body); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing %s: %w", destPath, err)
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", err
	}
	log.Printf("Saved to %s", destPath)
	return destPath, nil
}

// extractZip unpacks archive members flat into destDir, skipping existing
// non-empty targets.
func extractZip(zipPath, destDir string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, member := range zr.File {
		if member.FileInfo().IsDir() {
			continue
		}
		target := filepath.Join(destDir, filepath.Base(member.Name))
		if fileExistsNonEmpty(target) {
			log.Printf("Skip extract (already present): %s", target)
			continue
		}
		if err := extractMember(member, target); err != nil {
			return err
		}
		log.Printf("Extracted %s", target)
	}
	return nil
}

func extractMember(member *zip.File, target string) error {
	src, err := member.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func extractYear(key string) (int, error) {
	match := yearPattern.FindString(key)
	if match == "" {
		return 0, fmt.Errorf("cannot determine year from %q", key)
	}
	return strconv.Atoi(match)
}

func fileExistsNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
