// Package roster reads the school's student roster from MongoDB: student
// documents and the photos they reference. The documents are written by
// another application and are only loosely validated, so every field is
// decoded as optional.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/markme/facecheck/internal/domain"
)

const (
	StudentsCollection = "students"
	PhotosCollection   = "photos"
)

// Store is the reference store backed by the students and photos collections.
type Store struct {
	db       *mongo.Database
	students *mongo.Collection
	photos   *mongo.Collection
	logger   *slog.Logger
}

func NewStore(db *mongo.Database, logger *slog.Logger) *Store {
	return &Store{
		db:       db,
		students: db.Collection(StudentsCollection),
		photos:   db.Collection(PhotosCollection),
		logger:   logger,
	}
}

// studentDocument keeps every field raw; absence is a valid state.
type studentDocument struct {
	ID       bson.RawValue `bson:"_id"`
	Name     bson.RawValue `bson:"name"`
	PhotoID  bson.RawValue `bson:"photoId"`
	IsActive bson.RawValue `bson:"isActive"`
}

type photoDocument struct {
	Path bson.RawValue `bson:"path"`
	URL  bson.RawValue `bson:"url"`
}

// FindStudents returns the students matching filter ordered by _id.
func (s *Store) FindStudents(ctx context.Context, filter domain.StudentFilter) ([]domain.StudentRecord, error) {
	query := StudentQuery(filter)

	cursor, err := s.students.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}

	var docs []studentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}

	records := make([]domain.StudentRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc.record())
	}

	return records, nil
}

// FindPhoto resolves a student's photoId. A reference that is not an
// ObjectID or that matches no document yields (nil, nil).
func (s *Store) FindPhoto(ctx context.Context, ref string) (*domain.PhotoRecord, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(ref))
	if err != nil {
		s.logger.Debug("photo reference is not an object id", "photo_id", ref)
		return nil, nil
	}

	var doc photoDocument
	err = s.photos.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find photo %s: %w", oid.Hex(), err)
	}

	return doc.record(), nil
}

// Ping checks the connection to the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

// StudentQuery builds the students filter. The classroom may be stored either
// directly in classroomId or as a sub-document under classroomId._id, and as
// an ObjectID or its hex string, so all forms are matched.
func StudentQuery(filter domain.StudentFilter) bson.D {
	query := bson.D{}

	if filter.ActiveOnly {
		query = append(query, bson.E{Key: "isActive", Value: true})
	}

	if filter.Classroom != nil && !filter.Classroom.IsEmpty() {
		values := []any{filter.Classroom.Key}
		if filter.Classroom.HasObjectID {
			values = []any{filter.Classroom.ObjectID, filter.Classroom.Key}
		}

		or := bson.A{}
		for _, v := range values {
			or = append(or,
				bson.D{{Key: "classroomId", Value: v}},
				bson.D{{Key: "classroomId._id", Value: v}},
			)
		}
		query = append(query, bson.E{Key: "$or", Value: or})
	}

	return query
}

func (d studentDocument) record() domain.StudentRecord {
	return domain.StudentRecord{
		ID:       rawString(d.ID),
		Name:     rawString(d.Name),
		PhotoRef: rawString(d.PhotoID),
		IsActive: rawBool(d.IsActive),
	}
}

func (d photoDocument) record() *domain.PhotoRecord {
	return &domain.PhotoRecord{
		Path: rawString(d.Path),
		URL:  rawString(d.URL),
	}
}

// rawString renders scalar values as strings; documents, arrays and nulls
// read as empty.
func rawString(v bson.RawValue) string {
	switch v.Type {
	case bsontype.String:
		return v.StringValue()
	case bsontype.ObjectID:
		return v.ObjectID().Hex()
	case bsontype.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case bsontype.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case bsontype.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	default:
		return ""
	}
}

func rawBool(v bson.RawValue) *bool {
	if v.Type != bsontype.Boolean {
		return nil
	}
	b := v.Boolean()
	return &b
}
