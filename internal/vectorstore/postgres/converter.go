package postgres

import (
	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// chunkRow mirrors the rag_chunks columns read back by searches
type chunkRow struct {
	ID            string
	DocumentID    string
	Content       string
	ChunkIndex    int32
	StartPosition int32
	EndPosition   int32
	ContentHash   string
	ChunkType     string
	Metadata      map[string]any
	Score         pgtype.Float8
}

func (r *chunkRow) scanTargets() []any {
	return []any{
		&r.ID, &r.DocumentID, &r.Content, &r.ChunkIndex, &r.StartPosition, &r.EndPosition,
		&r.ContentHash, &r.ChunkType, &r.Metadata, &r.Score,
	}
}

func toEntityScoredChunk(row *chunkRow) entity.ScoredChunk {
	return entity.ScoredChunk{
		Chunk: entity.Chunk{
			ID:            row.ID,
			DocumentID:    row.DocumentID,
			Content:       row.Content,
			ChunkIndex:    int(row.ChunkIndex),
			StartPosition: int(row.StartPosition),
			EndPosition:   int(row.EndPosition),
			ContentHash:   row.ContentHash,
			Type:          entity.ChunkType(row.ChunkType),
			Metadata:      row.Metadata,
		},
		Score: row.Score.Float64,
	}
}

func upsertArgs(c entity.Chunk) []any {
	meta := c.Metadata
	if meta == nil {
		meta = map[string]any{}
	}

	var embedding *pgvector.Vector
	if len(c.Embedding) > 0 {
		v := pgvector.NewVector(c.Embedding)
		embedding = &v
	}

	chunkType := c.Type
	if chunkType == "" {
		chunkType = entity.ChunkTypeText
	}

	return []any{
		c.ID, c.DocumentID, c.Content, c.ChunkIndex, c.StartPosition, c.EndPosition,
		c.ContentHash, string(chunkType), meta, embedding,
	}
}
