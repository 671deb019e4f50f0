package campaigndb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/chainsafe/advent-agent/pkg/campaignstore"
	"github.com/chainsafe/advent-agent/pkg/catalog"
	mghelper "github.com/chainsafe/advent-agent/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		puzzles, err := catalog.Seed()
		if err != nil {
			return err
		}
		log.Printf("seeding %d puzzles...", len(puzzles))
		return campaignstore.NewStore(db).UpsertPuzzles(ctx, puzzles)
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("removing seeded puzzles...")
		return mghelper.TruncateTables(ctx, db, &campaignstore.PuzzleDao{})
	})
}
