// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// FinancialAnalysis 定义了 financial_analyses 表的 ORM 模型。
// 每次成功的分析请求追加一行，之后不再修改或删除。
type FinancialAnalysis struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FileName       string    `gorm:"type:varchar(255)" json:"file_name"`
	Query          string    `gorm:"type:text" json:"query"`
	AnalysisResult string    `gorm:"type:text" json:"analysis_result"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (FinancialAnalysis) TableName() string {
	return "financial_analyses"
}
