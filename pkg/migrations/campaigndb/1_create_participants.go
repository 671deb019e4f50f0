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
		log.Println("creating participants table...")
		if err := mghelper.CreateSchema(ctx, db, &campaignstore.ParticipantDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &campaignstore.ParticipantDao{}, "paid")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping participants table...")
		return mghelper.DropTables(ctx, db, &campaignstore.ParticipantDao{})
	})
}
