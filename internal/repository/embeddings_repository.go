// Package repository contains data access for the feed engine: embeddings
// (pgvector), impressions, watch history, videos, and trending aggregation.
// All SQL is parameterized; no identifiers or IDs are ever concatenated
// into query text.
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/clipiq/feed/internal/models"
	"github.com/clipiq/feed/pkg/vectormath"
)

// EmbeddingDim is the fixed dimension of video embeddings. Vectors are
// stored L2-normalized; cosine distance over unit vectors gives similarity
// score = 1 - distance.
const EmbeddingDim = 1024

// EmbeddingsRepository reads video-level embeddings from the video_embeddings
// table. The feed engine never writes embeddings; an upstream ingestion
// pipeline owns them.
type EmbeddingsRepository struct {
	db *pgxpool.Pool
}

// NewEmbeddingsRepository creates a new embeddings repository.
func NewEmbeddingsRepository(db *pgxpool.Pool) *EmbeddingsRepository {
	return &EmbeddingsRepository{db: db}
}

// GetEmbeddings returns the stored embedding for each of the given video IDs.
// Videos without an embedding are simply absent from the result; callers
// decide whether partial resolution is acceptable (profile building tolerates
// it, returning a profile from whatever resolved).
func (r *EmbeddingsRepository) GetEmbeddings(ctx context.Context, videoIDs []uuid.UUID) (map[uuid.UUID][]float32, error) {
	if len(videoIDs) == 0 {
		return map[uuid.UUID][]float32{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT video_id, embedding FROM video_embeddings WHERE video_id = ANY($1)`,
		videoIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("get embeddings: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]float32, len(videoIDs))

	for rows.Next() {
		var (
			id  uuid.UUID
			vec pgvector.HalfVector
		)

		if err := rows.Scan(&id, &vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}

		slice := vec.Slice()
		if len(slice) != EmbeddingDim {
			return nil, fmt.Errorf("get embeddings: video %s has %d dimensions, want %d: %w",
				id, len(slice), EmbeddingDim, vectormath.ErrDimensionMismatch)
		}

		result[id] = slice
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	return result, nil
}

// NearestNeighbors returns the k nearest videos to queryEmbedding by cosine
// distance (<=>), restricted to the given status and excluding excludeIDs.
// This is genuine top-k nearest-neighbor ordering, not payload-filtered
// scanning. Score = 1 - distance, in [0, 1] for unit vectors.
func (r *EmbeddingsRepository) NearestNeighbors(
	ctx context.Context, queryEmbedding []float32, k int, status string, excludeIDs []uuid.UUID,
) ([]models.NearestNeighbor, error) {
	if len(queryEmbedding) != EmbeddingDim {
		return nil, fmt.Errorf("nearest neighbors: query vector has %d dimensions, want %d: %w",
			len(queryEmbedding), EmbeddingDim, vectormath.ErrDimensionMismatch)
	}

	queryVec := pgvector.NewHalfVector(queryEmbedding)

	// Empty exclude array degenerates cleanly: NOT (id = ANY('{}')) is true.
	if excludeIDs == nil {
		excludeIDs = []uuid.UUID{}
	}

	rows, err := r.db.Query(ctx, `
		SELECT e.video_id, (1 - (e.embedding <=> $1)) AS score
		FROM video_embeddings e
		INNER JOIN videos v ON v.id = e.video_id
		WHERE v.status = $2 AND NOT (e.video_id = ANY($3))
		ORDER BY e.embedding <=> $1
		LIMIT $4`,
		queryVec, status, excludeIDs, k,
	)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", err)
	}
	defer rows.Close()

	var results []models.NearestNeighbor

	for rows.Next() {
		var n models.NearestNeighbor

		if err := rows.Scan(&n.VideoID, &n.Score); err != nil {
			return nil, fmt.Errorf("scan nearest neighbor: %w", err)
		}

		results = append(results, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nearest neighbors: %w", err)
	}

	return results, nil
}
