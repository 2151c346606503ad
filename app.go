package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"agrohub/models"
	"agrohub/requests"
)

type App struct {
	cfg Config
	log zerolog.Logger

	mongo         *mongo.Client
	db            *mongo.Database
	users         *mongo.Collection
	products      *mongo.Collection
	orders        *mongo.Collection
	notifications *mongo.Collection

	requests *requests.Service
}

func newApp(ctx context.Context, cfg Config, log zerolog.Logger) (*App, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDB)

	app := &App{
		cfg:           cfg,
		log:           log,
		mongo:         client,
		db:            db,
		users:         db.Collection("users"),
		products:      db.Collection("products"),
		orders:        db.Collection("orders"),
		notifications: db.Collection("notifications"),
	}

	// Indexes
	if _, err := app.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, err
	}
	if _, err := app.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "shop_manager_id", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return nil, err
	}
	if _, err := app.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "farmer_id", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return nil, err
	}
	if _, err := app.notifications.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return nil, err
	}

	store := requests.NewMongoStore(db.Collection("service_requests"))
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	app.requests = requests.New(store, app, &mongoNotifier{app: app}, log)

	if err := app.bootstrapAdmin(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) close(ctx context.Context) { _ = a.mongo.Disconnect(ctx) }

// FindActiveAgent satisfies requests.AgentDirectory against the users
// collection. Referential integrity of agent_id is this service's job,
// not the store's.
func (a *App) FindActiveAgent(ctx context.Context, id primitive.ObjectID) (*requests.Agent, error) {
	var u models.User
	err := a.users.FindOne(ctx, bson.M{
		"_id":    id,
		"role":   models.RoleAgent,
		"status": models.UserActive,
	}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &requests.Agent{ID: u.ID, Name: u.Name}, nil
}

// bootstrapAdmin creates the initial admin account from the environment if
// it does not exist yet. This replaces the seed script of earlier setups.
func (a *App) bootstrapAdmin(ctx context.Context) error {
	email := strings.ToLower(strings.TrimSpace(a.cfg.AdminEmail))
	if email == "" || a.cfg.AdminPassword == "" {
		return nil
	}
	n, err := a.users.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(a.cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = a.users.InsertOne(ctx, &models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Status:       models.UserActive,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return err
	}
	a.log.Info().Str("email", email).Msg("bootstrapped admin account")
	return nil
}
