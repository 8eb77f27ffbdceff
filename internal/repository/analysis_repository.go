// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"

	"gorm.io/gorm"

	"fin-analyzer-go/internal/model"
	"fin-analyzer-go/pkg/apperr"
)

// AnalysisRepository 接口定义了分析记录的持久化操作。记录只追加，不修改。
type AnalysisRepository interface {
	Create(ctx context.Context, record *model.FinancialAnalysis) error
	FindAll(ctx context.Context) ([]model.FinancialAnalysis, error)
}

// analysisRepository 是 AnalysisRepository 接口的 GORM 实现。
type analysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository 创建一个新的 AnalysisRepository 实例。
func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

// Create 写入一条新记录，成功后 record.ID 与 record.CreatedAt 被回填。
func (r *analysisRepository) Create(ctx context.Context, record *model.FinancialAnalysis) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperr.Storage(err, "failed to save analysis for %s", record.FileName)
	}
	return nil
}

// FindAll 按 id 升序返回全部记录。
func (r *analysisRepository) FindAll(ctx context.Context) ([]model.FinancialAnalysis, error) {
	records := make([]model.FinancialAnalysis, 0)
	if err := r.db.WithContext(ctx).Order("id asc").Find(&records).Error; err != nil {
		return nil, apperr.Storage(err, "failed to load analysis history")
	}
	return records, nil
}
