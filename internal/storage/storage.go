// Package storage is the gorm-backed persistence layer for posts,
// sentiment scores, sales and predictions.
package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"sentiment-sales-risk/internal/interfaces"
	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/types"
)

// Open connects to sqlite or postgres and migrates the schema.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&postRow{}, &sentimentRow{}, &salesRow{}, &predictionRow{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Store implements interfaces.Store. The ingestor is optional; without one
// an empty window simply stays empty.
type Store struct {
	db       *gorm.DB
	ingestor interfaces.Ingestor
}

var _ interfaces.Store = (*Store)(nil)

func New(db *gorm.DB, ingestor interfaces.Ingestor) *Store {
	return &Store{db: db, ingestor: ingestor}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) findPosts(ctx context.Context, q types.PostQuery) ([]types.SocialPost, error) {
	tx := s.db.WithContext(ctx).
		Preload("Sentiment").
		Where("product_name = ? AND brand_name = ?", q.ProductName, q.BrandName).
		Where("posted_on >= ? AND posted_on <= ?", q.From.Time, q.To.Time)
	if q.Platform != "" {
		tx = tx.Where("platform = ?", q.Platform)
	}

	var rows []postRow
	if err := tx.Order("posted_on ASC, created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	posts := make([]types.SocialPost, len(rows))
	for i, r := range rows {
		posts[i] = r.toPost()
	}
	return posts, nil
}

func (s *Store) GetOrCreatePosts(ctx context.Context, q types.PostQuery) ([]types.SocialPost, error) {
	posts, err := s.findPosts(ctx, q)
	if err != nil || len(posts) > 0 || s.ingestor == nil {
		return posts, err
	}

	comments, err := s.ingestor.FetchComments(ctx, q.Platform, q.SearchTerm())
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return posts, nil
	}

	rows := make([]postRow, 0, len(comments))
	for _, c := range comments {
		rows = append(rows, postRow{
			ID:          ingestedPostID(q, c),
			Content:     c.Text,
			Platform:    q.Platform,
			ProductName: q.ProductName,
			BrandName:   q.BrandName,
			PostedOn:    types.NewDate(c.PublishedAt.UTC()).Time,
		})
	}
	// Re-ingesting the same comments is a no-op.
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		CreateInBatches(rows, 100).Error
	if err != nil {
		return nil, fmt.Errorf("persist ingested posts: %w", err)
	}
	logger.Info(ctx, "Ingested posts persisted",
		"product", q.ProductName,
		"brand", q.BrandName,
		"platform", q.Platform,
		"posts", len(rows),
	)

	// Comments dated outside the window stay stored for later windows.
	return s.findPosts(ctx, q)
}

// ingestNamespace derives stable ids for ingested comments.
var ingestNamespace = uuid.MustParse("9d3f6a2e-8b41-4f7c-a6d2-3e1b5c7f0a84")

// ingestedPostID is a function of the post's identity, so the same comment
// fetched twice maps to one row.
func ingestedPostID(q types.PostQuery, c types.Comment) string {
	key := strings.Join([]string{
		q.Platform,
		q.ProductName,
		q.BrandName,
		c.PublishedAt.UTC().Format(time.RFC3339Nano),
		c.Text,
	}, "|")
	return uuid.NewSHA1(ingestNamespace, []byte(key)).String()
}

// InsertPosts stores posts as given, assigning ids to those without one.
func (s *Store) InsertPosts(ctx context.Context, posts []types.SocialPost) error {
	if len(posts) == 0 {
		return nil
	}
	rows := make([]postRow, len(posts))
	for i, p := range posts {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		rows[i] = postRow{
			ID:          id,
			Content:     p.Content,
			Platform:    p.Platform,
			ProductName: p.ProductName,
			BrandName:   p.BrandName,
			PostedOn:    p.PostedOn.Time,
		}
	}
	if err := s.db.WithContext(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("insert posts: %w", err)
	}
	return nil
}

func (s *Store) SalesRange(ctx context.Context, product, brand string, from, to types.Date) ([]types.SalesData, error) {
	var rows []salesRow
	err := s.db.WithContext(ctx).
		Where("product_name = ? AND brand_name = ?", product, brand).
		Where("date >= ? AND date <= ?", from.Time, to.Time).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	out := make([]types.SalesData, len(rows))
	for i, r := range rows {
		out[i] = r.toSales()
	}
	return out, nil
}

// SaveSales upserts sales rows keyed by product, brand and date.
func (s *Store) SaveSales(ctx context.Context, sales []types.SalesData) error {
	if len(sales) == 0 {
		return nil
	}
	rows := make([]salesRow, len(sales))
	for i, d := range sales {
		rows[i] = salesRow{
			ProductName: d.ProductName,
			BrandName:   d.BrandName,
			Date:        d.Date.Time,
			Revenue:     d.Revenue,
			UnitsSold:   d.UnitsSold,
		}
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_name"}, {Name: "brand_name"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"revenue", "units_sold"}),
		}).
		CreateInBatches(rows, 100).Error
	if err != nil {
		return fmt.Errorf("save sales: %w", err)
	}
	return nil
}

func (s *Store) UpsertPrediction(ctx context.Context, p types.Prediction) error {
	row := predictionRow{
		ProductName:      p.ProductName,
		BrandName:        p.BrandName,
		Date:             p.Date.Time,
		LossProbability:  p.LossProbability,
		PredictedDropPct: p.PredictedDropPct,
		RiskLevel:        string(p.RiskLevel),
		Explanation:      p.Explanation,
		UpdatedAt:        time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_name"}, {Name: "brand_name"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"loss_probability", "predicted_drop_pct", "risk_level", "explanation", "updated_at",
			}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert prediction: %w", err)
	}
	return nil
}

// Prediction returns the stored prediction for one key, if any.
func (s *Store) Prediction(ctx context.Context, product, brand string, date types.Date) (*types.Prediction, error) {
	var rows []predictionRow
	err := s.db.WithContext(ctx).
		Where("product_name = ? AND brand_name = ? AND date = ?", product, brand, date.Time).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query prediction: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	p := rows[0].toPrediction()
	return &p, nil
}

func (s *Store) EnsureSentiment(ctx context.Context, score types.SentimentScore) (types.SentimentScore, error) {
	row := sentimentRow{PostID: score.PostID, Label: string(score.Label), Score: score.Score}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}},
			DoNothing: true,
		}).
		Create(&row).Error
	if err != nil {
		return types.SentimentScore{}, fmt.Errorf("insert sentiment: %w", err)
	}

	var persisted sentimentRow
	if err := s.db.WithContext(ctx).Where("post_id = ?", score.PostID).First(&persisted).Error; err != nil {
		return types.SentimentScore{}, fmt.Errorf("read sentiment: %w", err)
	}
	return persisted.toScore(), nil
}

func (s *Store) Comments(ctx context.Context, q types.CommentQuery) ([]types.SocialPost, error) {
	tx := s.db.WithContext(ctx).
		Preload("Sentiment").
		Where("social_posts.product_name = ? AND social_posts.brand_name = ?", q.ProductName, q.BrandName)
	if q.Platform != "" {
		tx = tx.Where("social_posts.platform = ?", q.Platform)
	}
	if q.Label != "" {
		tx = tx.Joins("JOIN sentiment_scores ON sentiment_scores.post_id = social_posts.id").
			Where("sentiment_scores.label = ?", string(q.Label))
	}

	var rows []postRow
	if err := tx.Order("social_posts.posted_on DESC, social_posts.id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	posts := make([]types.SocialPost, len(rows))
	for i, r := range rows {
		posts[i] = r.toPost()
	}
	return posts, nil
}
