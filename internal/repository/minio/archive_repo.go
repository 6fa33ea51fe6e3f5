package minio

import (
	"bytes"
	"context"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/cfg"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// ArchiveRepo хранит архивные документы продаж в бакете MinIO.
type ArchiveRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewArchiveRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ArchiveRepo {
	return &ArchiveRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Put загружает объект и возвращает его ключ.
func (a *ArchiveRepo) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	info, err := a.mc.PutObject(ctx, a.cfg.BucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}

// Delete удаляет объект по ключу.
func (a *ArchiveRepo) Delete(ctx context.Context, key string) error {
	if err := a.mc.RemoveObject(ctx, a.cfg.BucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
