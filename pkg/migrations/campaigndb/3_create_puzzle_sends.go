package campaigndb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/chainsafe/advent-agent/pkg/campaignstore"
	mghelper "github.com/chainsafe/advent-agent/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating puzzle_sends table...")
		if err := mghelper.CreateSchema(ctx, db, &campaignstore.PuzzleSendDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &campaignstore.PuzzleSendDao{}, "day")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping puzzle_sends table...")
		return mghelper.DropTables(ctx, db, &campaignstore.PuzzleSendDao{})
	})
}
