package model

import "time"

// Card 持久化的贺卡记录，媒体字段保存对象存储的 key
type Card struct {
	ID               string    `json:"id" gorm:"primaryKey;size:16"`
	DisplayName      string    `json:"displayName" gorm:"size:100;not null"`
	VisualKey        string    `json:"visualKey,omitempty" gorm:"size:512"`
	AudioKey         string    `json:"audioKey,omitempty" gorm:"size:512"`
	CaptionKey       string    `json:"captionKey,omitempty" gorm:"size:512"`
	ForceVisualMuted *bool     `json:"forceVisualMuted,omitempty"` // nil 表示未设置，与 false 含义不同
	CreatedBy        string    `json:"createdBy,omitempty" gorm:"size:100"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Card) TableName() string {
	return "cards"
}

// MessageRecord 查询服务返回给播放端的记录，媒体地址为带签名、会过期的 URL
type MessageRecord struct {
	ID               string    `json:"id"`
	VisualURL        string    `json:"visualUrl,omitempty"`
	VisualKind       string    `json:"visualKind"`
	AudioURL         string    `json:"audioUrl,omitempty"`
	CaptionSource    string    `json:"captionSource,omitempty"`
	DisplayName      string    `json:"displayName"`
	ForceVisualMuted *bool     `json:"forceVisualMuted,omitempty"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

// CreateCardRequest 创建贺卡请求
type CreateCardRequest struct {
	DisplayName      string `json:"displayName" yaml:"displayName"`
	VisualKey        string `json:"visualKey,omitempty" yaml:"visualKey"`
	AudioKey         string `json:"audioKey,omitempty" yaml:"audioKey"`
	CaptionKey       string `json:"captionKey,omitempty" yaml:"captionKey"`
	ForceVisualMuted *bool  `json:"forceVisualMuted,omitempty" yaml:"forceVisualMuted"`
}

// CreateCardResponse 创建贺卡响应
type CreateCardResponse struct {
	ID       string `json:"id"`
	ShareURL string `json:"shareUrl"`
}
