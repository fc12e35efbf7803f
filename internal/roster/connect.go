package roster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// fallbackDatabases are tried after MONGO_DBNAME and the URI path.
var fallbackDatabases = []string{"MarkME", "test"}

const connectTimeout = 10 * time.Second

// Connect opens a client, pings it and picks the roster database.
func Connect(ctx context.Context, uri, explicitDB string, logger *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(connectTimeout))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	candidates := Candidates(explicitDB, uri)
	name := SelectDatabase(ctx, candidates, func(ctx context.Context, name string) (int64, error) {
		return client.Database(name).Collection(StudentsCollection).EstimatedDocumentCount(ctx)
	})

	logger.Info("roster database selected", "database", name, "candidates", candidates)

	return client, client.Database(name), nil
}

// Candidates lists database names in selection order: the explicit name, the
// URI path, then the well-known fallbacks. Duplicates are dropped.
func Candidates(explicit, uri string) []string {
	var out []string
	seen := make(map[string]bool)

	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	add(explicit)
	add(DatabaseFromURI(uri))
	for _, name := range fallbackDatabases {
		add(name)
	}

	return out
}

// DatabaseFromURI extracts the database path of a mongodb:// or
// mongodb+srv:// URI, or "" when there is none.
func DatabaseFromURI(uri string) string {
	_, rest, ok := strings.Cut(uri, "//")
	if !ok {
		return ""
	}

	_, path, ok := strings.Cut(rest, "/")
	if !ok {
		return ""
	}

	path, _, _ = strings.Cut(path, "?")
	return strings.TrimSpace(path)
}

// CountFunc reports how many students a database holds.
type CountFunc func(ctx context.Context, database string) (int64, error)

// SelectDatabase returns the first candidate whose students collection has
// documents, or the first candidate when none do. Count errors skip the
// candidate.
func SelectDatabase(ctx context.Context, candidates []string, count CountFunc) string {
	for _, name := range candidates {
		n, err := count(ctx, name)
		if err != nil {
			continue
		}
		if n > 0 {
			return name
		}
	}

	if len(candidates) == 0 {
		return fallbackDatabases[0]
	}
	return candidates[0]
}
