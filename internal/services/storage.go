package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// MaxImageBytes borne la taille d'une image envoyée en data: URL
const MaxImageBytes = 5 << 20

var (
	ErrNotDataURL       = errors.New("pas une data: URL")
	ErrUnsupportedImage = errors.New("type d'image non supporté")
	ErrImageTooLarge    = errors.New("image trop volumineuse")
)

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ObjectStore stocke un objet et retourne son URL durable
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// MinioStore écrit dans un bucket MinIO
type MinioStore struct {
	client   *minio.Client
	bucket   string
	endpoint string
	secure   bool
}

func NewMinioStore(client *minio.Client, endpoint, bucket string, secure bool) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, endpoint: endpoint, secure: secure}
}

func (s *MinioStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.ObjectURL(key), nil
}

func (s *MinioStore) ObjectURL(key string) string {
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}

// SignedURL génère une URL temporaire pour un objet du bucket (URL complète ou clé)
func (s *MinioStore) SignedURL(ctx context.Context, objectURL string, duration time.Duration) (string, error) {
	key := strings.TrimPrefix(objectURL, s.ObjectURL(""))
	if key == objectURL && strings.Contains(objectURL, "://") {
		return objectURL, nil // image externe, rien à signer
	}
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, duration, make(url.Values))
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}

// DecodeDataURL lit "data:<mime>;base64,<payload>"
func DecodeDataURL(raw string) (string, []byte, error) {
	if !strings.HasPrefix(raw, "data:") {
		return "", nil, ErrNotDataURL
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", nil, fmt.Errorf("%w: encodage base64 attendu", ErrUnsupportedImage)
	}
	contentType := strings.ToLower(strings.TrimSuffix(header, ";base64"))
	if _, ok := imageExtensions[contentType]; !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedImage, contentType)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return "", nil, ErrImageTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: base64 invalide", ErrUnsupportedImage)
	}
	if len(data) > MaxImageBytes {
		return "", nil, ErrImageTooLarge
	}
	return contentType, data, nil
}

func isRemoteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ImageResolver transforme les références d'images d'une commande en URLs
// durables. Il ne renvoie jamais d'erreur : une image non résolue est ignorée.
type ImageResolver struct {
	store ObjectStore // nil : les data: URLs sont ignorées
}

func NewImageResolver(store ObjectStore) *ImageResolver {
	return &ImageResolver{store: store}
}

func (r *ImageResolver) Resolve(ctx context.Context, orderID string, refs []string) []string {
	resolved := make([]string, 0, len(refs))
	for i, ref := range refs {
		ref = strings.TrimSpace(ref)
		switch {
		case ref == "":
			continue
		case isRemoteURL(ref):
			resolved = append(resolved, ref)
		case strings.HasPrefix(ref, "data:"):
			if r.store == nil {
				log.Printf("⚠️ Image data: ignorée (stockage non configuré) pour la commande %s", orderID)
				continue
			}
			contentType, data, err := DecodeDataURL(ref)
			if err != nil {
				log.Printf("⚠️ Image ignorée pour la commande %s: %v", orderID, err)
				continue
			}
			key := fmt.Sprintf("orders/%s/%d.%s", orderID, i, imageExtensions[contentType])
			u, err := r.store.Put(ctx, key, contentType, data)
			if err != nil {
				log.Printf("⚠️ Upload image échoué pour la commande %s: %v", orderID, err)
				continue
			}
			resolved = append(resolved, u)
		default:
			// blob:, chemins locaux et autres références non transférables
			log.Printf("⚠️ Référence d'image non exploitable ignorée pour la commande %s", orderID)
		}
	}
	return resolved
}
