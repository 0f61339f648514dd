package mongo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/toyshophq/toyshop-server/internal/store"
)

// MongoStore implements store.Store on top of a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	toys   *mongo.Collection
	users  *mongo.Collection
}

// New connects to MongoDB and prepares the toys and users collections.
func New(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	// Fail fast on an unreachable deployment.
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client: client,
		toys:   db.Collection("toys"),
		users:  db.Collection("users"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ==== document shapes ====

type messageDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    string             `bson:"userId"`
	Username  string             `bson:"username"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type toyDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Price     float64            `bson:"price"`
	Labels    []string           `bson:"labels"`
	InStock   bool               `bson:"inStock"`
	CreatedAt time.Time          `bson:"createdAt"`
	Messages  []messageDoc       `bson:"messages"`
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Fullname     string             `bson:"fullname"`
	PasswordHash string             `bson:"passwordHash"`
	IsAdmin      bool               `bson:"isAdmin"`
	IsGuest      bool               `bson:"isGuest"`
	SessionID    string             `bson:"sessionId,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

func (d *toyDoc) toStore() *store.Toy {
	toy := &store.Toy{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Price:     d.Price,
		Labels:    d.Labels,
		InStock:   d.InStock,
		CreatedAt: d.CreatedAt,
		Messages:  make([]store.Message, 0, len(d.Messages)),
	}
	for _, m := range d.Messages {
		toy.Messages = append(toy.Messages, store.Message{
			ID:        m.ID.Hex(),
			UserID:    m.UserID,
			Username:  m.Username,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return toy
}

func (d *userDoc) toStore() *store.User {
	return &store.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Fullname:     d.Fullname,
		PasswordHash: d.PasswordHash,
		IsAdmin:      d.IsAdmin,
		IsGuest:      d.IsGuest,
		SessionID:    d.SessionID,
		CreatedAt:    d.CreatedAt,
	}
}

// parseID maps a hex string to an ObjectID, classifying garbage as
// invalid input rather than not-found.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: malformed id %q", store.ErrInvalidInput, id)
	}
	return oid, nil
}

// ==== ToyStore implementation ====

// toyFilterQuery builds the Mongo filter document for QueryToys.
func toyFilterQuery(filter store.ToyFilter) bson.M {
	q := bson.M{}
	if filter.Name != "" {
		q["name"] = bson.M{"$regex": regexp.QuoteMeta(filter.Name), "$options": "i"}
	}
	if filter.InStock != nil {
		q["inStock"] = *filter.InStock
	}
	if len(filter.Labels) > 0 {
		q["labels"] = bson.M{"$all": filter.Labels}
	}
	return q
}

// toySortSpec maps an API sort key to a Mongo sort document. Unknown keys
// fall back to insertion order.
func toySortSpec(sortBy string) bson.D {
	switch sortBy {
	case "name", "price", "createdAt":
		return bson.D{{Key: sortBy, Value: 1}}
	default:
		return bson.D{{Key: "_id", Value: 1}}
	}
}

// QueryToys returns one page of toys matching the filter plus the total count.
func (s *MongoStore) QueryToys(ctx context.Context, filter store.ToyFilter, sortBy string, pageIdx, pageSize int) (*store.ToyPage, error) {
	if pageSize <= 0 {
		pageSize = 5
	}
	if pageIdx < 0 {
		pageIdx = 0
	}

	query := toyFilterQuery(filter)

	total, err := s.toys.CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count toys: %w", err)
	}

	opts := options.Find().
		SetSort(toySortSpec(sortBy)).
		SetSkip(int64(pageIdx * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := s.toys.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find toys: %w", err)
	}
	defer cursor.Close(ctx)

	page := &store.ToyPage{Toys: make([]*store.Toy, 0, pageSize), Total: total}
	for cursor.Next(ctx) {
		var doc toyDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode toy: %w", err)
		}
		page.Toys = append(page.Toys, doc.toStore())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate toys: %w", err)
	}

	return page, nil
}

// GetToy retrieves a single toy with its full message list.
func (s *MongoStore) GetToy(ctx context.Context, toyID string) (*store.Toy, error) {
	oid, err := parseID(toyID)
	if err != nil {
		return nil, err
	}

	var doc toyDoc
	err = s.toys.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("toy %s: %w", toyID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find toy: %w", err)
	}

	return doc.toStore(), nil
}

// AddToy inserts a new toy with an empty message list.
func (s *MongoStore) AddToy(ctx context.Context, toy *store.Toy) (*store.Toy, error) {
	if strings.TrimSpace(toy.Name) == "" {
		return nil, fmt.Errorf("%w: toy name is required", store.ErrInvalidInput)
	}

	doc := toyDoc{
		ID:        primitive.NewObjectID(),
		Name:      toy.Name,
		Price:     toy.Price,
		Labels:    toy.Labels,
		InStock:   toy.InStock,
		CreatedAt: time.Now().UTC(),
		Messages:  []messageDoc{},
	}
	if doc.Labels == nil {
		doc.Labels = []string{}
	}

	if _, err := s.toys.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert toy: %w", err)
	}

	return doc.toStore(), nil
}

// UpdateToy overwrites the catalog fields of an existing toy. The messages
// array is deliberately left out of the $set so message mutations racing
// this update never get clobbered.
func (s *MongoStore) UpdateToy(ctx context.Context, toy *store.Toy) (*store.Toy, error) {
	oid, err := parseID(toy.ID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(toy.Name) == "" {
		return nil, fmt.Errorf("%w: toy name is required", store.ErrInvalidInput)
	}

	labels := toy.Labels
	if labels == nil {
		labels = []string{}
	}

	res, err := s.toys.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"name":    toy.Name,
		"price":   toy.Price,
		"labels":  labels,
		"inStock": toy.InStock,
	}})
	if err != nil {
		return nil, fmt.Errorf("update toy: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("toy %s: %w", toy.ID, store.ErrNotFound)
	}

	return s.GetToy(ctx, toy.ID)
}

// RemoveToy deletes a toy and its embedded messages.
func (s *MongoStore) RemoveToy(ctx context.Context, toyID string) error {
	oid, err := parseID(toyID)
	if err != nil {
		return err
	}

	res, err := s.toys.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete toy: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("toy %s: %w", toyID, store.ErrNotFound)
	}

	return nil
}

// AddToyMessage appends a message to the toy's thread via a server-side
// $push. The whole document is never read back and rewritten, so two
// concurrent adds to the same toy both land.
func (s *MongoStore) AddToyMessage(ctx context.Context, toyID, userID, username, content string) (*store.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is empty", store.ErrInvalidInput)
	}

	oid, err := parseID(toyID)
	if err != nil {
		return nil, err
	}

	doc := messageDoc{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Username:  username,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.toys.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$push": bson.M{"messages": doc},
	})
	if err != nil {
		return nil, fmt.Errorf("push message: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("toy %s: %w", toyID, store.ErrNotFound)
	}

	return &store.Message{
		ID:        doc.ID.Hex(),
		UserID:    doc.UserID,
		Username:  doc.Username,
		Content:   doc.Content,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// RemoveToyMessage pulls a message by ID via a server-side $pull, so a
// concurrent add to the same toy is never clobbered. A second removal of
// the same id matches the toy but modifies nothing, which reports as
// ErrNotFound.
func (s *MongoStore) RemoveToyMessage(ctx context.Context, toyID, messageID string) error {
	toyOID, err := parseID(toyID)
	if err != nil {
		return err
	}
	msgOID, err := parseID(messageID)
	if err != nil {
		return err
	}

	res, err := s.toys.UpdateOne(ctx, bson.M{"_id": toyOID}, bson.M{
		"$pull": bson.M{"messages": bson.M{"_id": msgOID}},
	})
	if err != nil {
		return fmt.Errorf("pull message: %w", err)
	}
	if res.MatchedCount == 0 || res.ModifiedCount == 0 {
		return fmt.Errorf("message %s on toy %s: %w", messageID, toyID, store.ErrNotFound)
	}

	return nil
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *MongoStore) CreateUser(ctx context.Context, username, fullname, passwordHash string) (*store.User, error) {
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Username:     username,
		Fullname:     fullname,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return doc.toStore(), nil
}

// CreateGuestUser creates a temporary guest user with session ID.
func (s *MongoStore) CreateGuestUser(ctx context.Context, sessionID string) (*store.User, error) {
	doc := userDoc{
		ID:        primitive.NewObjectID(),
		Username:  "guest_" + sessionID[:8],
		Fullname:  "Guest",
		IsGuest:   true,
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert guest user: %w", err)
	}

	return doc.toStore(), nil
}

// GetUserByID retrieves a user by ID.
func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var doc userDoc
	err = s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	return doc.toStore(), nil
}

// GetUserByUsername retrieves a non-guest user by username.
func (s *MongoStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"username": username, "isGuest": false}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user %s: %w", username, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	return doc.toStore(), nil
}
