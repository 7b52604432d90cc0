package minio

import (
	"bytes"
	"context"

	"github.com/DRSN-tech/storefront-sync/internal/cfg"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

const exportContentType = "application/json"

// ExportRepo складывает JSON-выгрузки каталога в бакет MinIO.
type ExportRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewExportRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ExportRepo {
	return &ExportRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Save загружает выгрузку под именем name и возвращает ключ объекта.
// Выгрузка за тот же день перезаписывается.
func (x *ExportRepo) Save(ctx context.Context, name string, data []byte) (string, error) {
	info, err := x.mc.PutObject(ctx, x.cfg.BucketName, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: exportContentType,
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}
