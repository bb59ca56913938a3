package card

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"msgcard/core/playback"
	"msgcard/core/utils"
	"msgcard/logger"
	"msgcard/model"
	"msgcard/repository"
	"msgcard/storage"

	"go.uber.org/zap"
)

const (
	idAlphabet      = "abcdefghijklmnopqrstuvwxyz0123456789"
	idLength        = 8
	maxIDAttempts   = 100
	maxNameLength   = 100
	defaultPresign  = time.Hour
	captionReadSize = storage.MaxCaptionBytes
)

var (
	// ErrNotFound 贺卡不存在
	ErrNotFound = errors.New("card not found")
	// ErrInvalidCard 创建请求校验失败
	ErrInvalidCard = errors.New("invalid card")

	idPattern = regexp.MustCompile(`^[a-z0-9]{4,16}$`)
)

// ObjectStore 对象存储中查询服务用到的部分
type ObjectStore interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	GetText(ctx context.Context, key string, limit int64) (string, error)
}

// RecordCache 解析后记录的缓存，未命中返回 nil, nil
type RecordCache interface {
	Get(ctx context.Context, id string) (*model.MessageRecord, error)
	Set(ctx context.Context, rec *model.MessageRecord, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Lookup 按 id 获取记录
type Lookup interface {
	Lookup(ctx context.Context, id string) (*model.MessageRecord, error)
}

// Service 贺卡查询与创建
type Service struct {
	repo       repository.CardRepository
	store      ObjectStore
	cache      RecordCache
	presignTTL time.Duration
	cacheTTL   time.Duration
	baseURL    string
	fetchText  func(ctx context.Context, url string, limit int64) (string, error)
	now        func() time.Time
	newID      func() string
	log        *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache 启用读穿缓存，ttl <= 0 时不缓存
func WithCache(c RecordCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithPresignTTL 设置签名 URL 有效期
func WithPresignTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.presignTTL = ttl
		}
	}
}

// WithShareBaseURL 设置分享链接前缀
func WithShareBaseURL(base string) Option {
	return func(s *Service) { s.baseURL = base }
}

// WithLogger replaces the default "card" logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService 创建贺卡服务，store 可以为 nil（只接受绝对 URL 的媒体）
func NewService(repo repository.CardRepository, store ObjectStore, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		store:      store,
		presignTTL: defaultPresign,
		fetchText:  utils.FetchText,
		now:        time.Now,
		newID:      randomID,
		log:        logger.Named("card"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidID 判断 id 是否符合短链格式
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Lookup 返回可直接播放的记录，媒体地址已签名
func (s *Service) Lookup(ctx context.Context, id string) (*model.MessageRecord, error) {
	if !ValidID(id) {
		return nil, ErrNotFound
	}

	if rec := s.cached(ctx, id); rec != nil {
		return rec, nil
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	if c == nil {
		return nil, ErrNotFound
	}

	rec := s.resolve(ctx, c)
	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, rec, s.cacheTTL); err != nil {
			s.log.Warn("failed to cache card record", zap.String("card", id), zap.Error(err))
		}
	}
	return rec, nil
}

func (s *Service) cached(ctx context.Context, id string) *model.MessageRecord {
	if s.cache == nil {
		return nil
	}
	rec, err := s.cache.Get(ctx, id)
	if err != nil {
		s.log.Warn("card cache read failed", zap.String("card", id), zap.Error(err))
		return nil
	}
	if rec == nil || !rec.ExpiresAt.After(s.now()) {
		return nil
	}
	return rec
}

// resolve 缺失或签名失败的媒体按“该模态不存在”处理
func (s *Service) resolve(ctx context.Context, c *model.Card) *model.MessageRecord {
	rec := &model.MessageRecord{
		ID:               c.ID,
		DisplayName:      c.DisplayName,
		ForceVisualMuted: c.ForceVisualMuted,
		ExpiresAt:        s.now().Add(s.presignTTL),
	}

	rec.VisualURL = s.signed(ctx, c.ID, "visual", c.VisualKey)
	rec.AudioURL = s.signed(ctx, c.ID, "audio", c.AudioKey)
	rec.VisualKind = playback.ClassifyMedia(rec.VisualURL).String()
	rec.CaptionSource = s.captionText(ctx, c.ID, c.CaptionKey)
	return rec
}

func (s *Service) signed(ctx context.Context, id, role, key string) string {
	if key == "" {
		return ""
	}
	if storage.IsAbsoluteURL(key) {
		return key
	}
	if s.store == nil {
		s.log.Warn("object store not configured, media dropped",
			zap.String("card", id), zap.String("role", role))
		return ""
	}

	u, err := s.store.PresignGet(ctx, key, s.presignTTL)
	if err != nil {
		s.log.Warn("failed to presign media",
			zap.String("card", id), zap.String("role", role), zap.Error(err))
		return ""
	}
	return u
}

func (s *Service) captionText(ctx context.Context, id, key string) string {
	if key == "" {
		return ""
	}

	var (
		text string
		err  error
	)
	switch {
	case storage.IsAbsoluteURL(key):
		text, err = s.fetchText(ctx, key, captionReadSize)
	case s.store != nil:
		text, err = s.store.GetText(ctx, key, captionReadSize)
	default:
		err = errors.New("object store not configured")
	}
	if err != nil {
		s.log.Warn("failed to read caption document", zap.String("card", id), zap.Error(err))
		return ""
	}
	return text
}

// Create 校验请求并写入新贺卡
func (s *Service) Create(ctx context.Context, req *model.CreateCardRequest, createdBy string) (*model.Card, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	id, err := s.allocateID(ctx)
	if err != nil {
		return nil, err
	}

	c := &model.Card{
		ID:               id,
		DisplayName:      strings.TrimSpace(req.DisplayName),
		VisualKey:        strings.TrimSpace(req.VisualKey),
		AudioKey:         strings.TrimSpace(req.AudioKey),
		CaptionKey:       strings.TrimSpace(req.CaptionKey),
		ForceVisualMuted: req.ForceVisualMuted,
		CreatedBy:        createdBy,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	s.log.Info("card created", zap.String("card", id), zap.String("createdBy", createdBy))
	return c, nil
}

// Delete 删除贺卡并清除缓存
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			s.log.Warn("failed to evict card record", zap.String("card", id), zap.Error(err))
		}
	}
	return nil
}

// ShareURL 拼接分享链接
func (s *Service) ShareURL(id string) string {
	if s.baseURL == "" {
		return id
	}
	if strings.HasSuffix(s.baseURL, "/") {
		return s.baseURL + id
	}
	return s.baseURL + "/" + id
}

func (s *Service) allocateID(ctx context.Context) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		exists, err := s.repo.ExistsByID(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check card id: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free card id after %d attempts", maxIDAttempts)
}

func validate(req *model.CreateCardRequest) error {
	if req == nil {
		return fmt.Errorf("%w: empty request", ErrInvalidCard)
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return fmt.Errorf("%w: displayName is required", ErrInvalidCard)
	}
	if len([]rune(name)) > maxNameLength {
		return fmt.Errorf("%w: displayName longer than %d characters", ErrInvalidCard, maxNameLength)
	}
	if strings.TrimSpace(req.VisualKey) == "" && strings.TrimSpace(req.AudioKey) == "" {
		return fmt.Errorf("%w: visualKey or audioKey is required", ErrInvalidCard)
	}
	return nil
}

func randomID() string {
	b := make([]byte, idLength)
	for i := range b {
		b[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return string(b)
}
