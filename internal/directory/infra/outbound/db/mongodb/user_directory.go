// en internal/directory/infra/outbound/db/mongodb/user_directory.go
package mongodb

import (
	"context"
	"errors"
	"fmt"

	directoryDomain "github.com/davicafu/taskboard/internal/directory/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// UserDirectoryMongoDB implementa el directorio de usuarios sobre MongoDB.
// La colección 'users' es una réplica de lectura del proveedor de identidad,
// mantenida por un proceso de sincronización externo.
type UserDirectoryMongoDB struct {
	client    *mongo.Client
	usersColl *mongo.Collection
}

// NewUserDirectoryMongoDB es el constructor del directorio.
func NewUserDirectoryMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*UserDirectoryMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	return &UserDirectoryMongoDB{
		client:    client,
		usersColl: client.Database(dbName).Collection("users"),
	}, nil
}

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoUser struct {
	SubjectID string `bson:"_id"`
	Email     string `bson:"email"`
	Name      string `bson:"name"`
	Role      string `bson:"role"`
}

func fromMongoUser(m mongoUser) *directoryDomain.User {
	return &directoryDomain.User{
		SubjectID: m.SubjectID,
		Email:     m.Email,
		Name:      m.Name,
		Role:      m.Role,
	}
}

// ListUsers devuelve todos los usuarios del directorio ordenados por email.
func (r *UserDirectoryMongoDB) ListUsers(ctx context.Context) ([]*directoryDomain.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "email", Value: 1}})
	cursor, err := r.usersColl.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*directoryDomain.User
	for cursor.Next(ctx) {
		var m mongoUser
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}
		users = append(users, fromMongoUser(m))
	}

	return users, cursor.Err()
}

// GetUser recupera un usuario por su identificador de sujeto.
func (r *UserDirectoryMongoDB) GetUser(ctx context.Context, subjectID string) (*directoryDomain.User, error) {
	var m mongoUser
	err := r.usersColl.FindOne(ctx, bson.M{"_id": subjectID}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, directoryDomain.ErrUserNotFound
		}
		return nil, err
	}
	return fromMongoUser(m), nil
}

// AdminEmails devuelve los emails de los usuarios con rol Admin. Es el
// origen de destinatarios para las notificaciones de cambio de estado.
func (r *UserDirectoryMongoDB) AdminEmails(ctx context.Context) ([]string, error) {
	cursor, err := r.usersColl.Find(ctx, bson.M{"role": "Admin"})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var emails []string
	for cursor.Next(ctx) {
		var m mongoUser
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}
		if m.Email != "" {
			emails = append(emails, m.Email)
		}
	}

	return emails, cursor.Err()
}

// Verificación en tiempo de compilación.
var _ directoryDomain.UserDirectory = (*UserDirectoryMongoDB)(nil)
