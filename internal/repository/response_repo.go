package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"formgate/internal/model"
)

// ResponseRepo handles MongoDB operations for responses. Answers live in an
// embedded map keyed by question id, so a save is a single $set per answer.
type ResponseRepo interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, response *model.Response) (string, error)
	GetByID(ctx context.Context, id string) (*model.Response, error)
	GetByToken(ctx context.Context, token string) (*model.Response, error)
	SaveAnswers(ctx context.Context, token string, answers []model.Answer) (bool, error)
	MarkSubmitted(ctx context.Context, token string, at time.Time) (bool, error)
	List(ctx context.Context, filter model.ResponseFilter) (*model.ResponsePage, error)
	CountByForm(ctx context.Context, formID string) (int64, error)
}

type responseRepo struct {
	collection *mongo.Collection
}

// NewResponseRepo creates a new response repository
func NewResponseRepo(db *mongo.Database) ResponseRepo {
	return &responseRepo{
		collection: db.Collection("responses"),
	}
}

func (r *responseRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionToken", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "formId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
	return err
}

func (r *responseRepo) Create(ctx context.Context, response *model.Response) (string, error) {
	now := time.Now()
	response.CreatedAt = now
	response.UpdatedAt = now
	if response.Answers == nil {
		// $set into answers.<id> needs an existing document, not null
		response.Answers = model.AnswerSet{}
	}

	doc := *response
	doc.ID = ""
	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", nil
	}
	response.ID = oid.Hex()
	return response.ID, nil
}

func (r *responseRepo) GetByID(ctx context.Context, id string) (*model.Response, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *responseRepo) GetByToken(ctx context.Context, token string) (*model.Response, error) {
	return r.findOne(ctx, bson.M{"sessionToken": token})
}

func (r *responseRepo) findOne(ctx context.Context, filter bson.M) (*model.Response, error) {
	var response model.Response
	err := r.collection.FindOne(ctx, filter).Decode(&response)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if response.Answers == nil {
		response.Answers = model.AnswerSet{}
	}
	return &response, nil
}

// SaveAnswers upserts answers into an open response. It reports false when
// no open response matched, i.e. the token is unknown or already submitted.
func (r *responseRepo) SaveAnswers(ctx context.Context, token string, answers []model.Answer) (bool, error) {
	now := time.Now()
	set := bson.M{"updatedAt": now}
	for _, a := range answers {
		set["answers."+a.QuestionID] = a
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"sessionToken": token, "submitted": false},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// MarkSubmitted flips submitted once. A second call matches nothing and
// reports false.
func (r *responseRepo) MarkSubmitted(ctx context.Context, token string, at time.Time) (bool, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"sessionToken": token, "submitted": false},
		bson.M{"$set": bson.M{"submitted": true, "submittedAt": at, "updatedAt": at}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (r *responseRepo) List(ctx context.Context, filter model.ResponseFilter) (*model.ResponsePage, error) {
	query := bson.M{}
	if filter.FormID != "" {
		query["formId"] = filter.FormID
	}
	if filter.Submitted != nil {
		query["submitted"] = *filter.Submitted
	}
	created := bson.M{}
	if filter.StartDate != nil {
		created["$gte"] = *filter.StartDate
	}
	if filter.EndDate != nil {
		created["$lte"] = *filter.EndDate
	}
	if len(created) > 0 {
		query["createdAt"] = created
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, err
	}

	page, perPage := filter.Page, filter.PerPage
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	data := []*model.Response{}
	if err := cursor.All(ctx, &data); err != nil {
		return nil, err
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	return &model.ResponsePage{
		Data:        data,
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage,
	}, nil
}

func (r *responseRepo) CountByForm(ctx context.Context, formID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"formId": formID})
}
