package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"formgate/internal/config"
	"formgate/internal/engine"
	"formgate/internal/model"
	"formgate/internal/repository"
)

type seedResponse struct {
	label     string
	submitted bool
	answers   map[int]interface{} // keyed by question order
}

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB)
	formRepo := repository.NewFormRepo(db)
	responseRepo := repository.NewResponseRepo(db)

	ids := make([]string, 7)
	for i := range ids {
		ids[i] = primitive.NewObjectID().Hex()
	}

	form := &model.Form{
		Name:        "Safety Procedure Check",
		Description: "Daily safety checklist for factory employees and supervisors.",
		Questions: []model.Question{
			{ID: ids[1], Text: "Is the workplace clean and free of debris?", Type: model.QuestionTypeBoolean, Required: true, Order: 1},
			{ID: ids[2], Text: "Are there objects blocking emergency exits or walkways?", Type: model.QuestionTypeBoolean, Required: true, Order: 2},
			{
				ID: ids[3], Text: "If yes, please describe the obstruction.", Type: model.QuestionTypeText, Required: true, Order: 3,
				Rule: &model.ConditionalRule{DependsOn: ids[2], Operator: model.OperatorEquals, CompareValue: model.Bool(true)},
			},
			{ID: ids[4], Text: "Are tools stored in their assigned places?", Type: model.QuestionTypeBoolean, Required: true, Order: 4},
			{
				ID: ids[5], Text: "Which area was checked?", Type: model.QuestionTypeSelect, Required: true, Order: 5,
				Options: []string{"Assembly Line", "Warehouse", "Packing Area", "Office"},
			},
			{ID: ids[6], Text: "Any other safety concerns?", Type: model.QuestionTypeText, Order: 6},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, issue := range engine.Lint(form.Questions) {
		log.Printf("lint: %s", issue)
	}

	formID, err := formRepo.Create(ctx, form)
	if err != nil {
		log.Fatalf("Failed to insert form: %v", err)
	}

	responses := []seedResponse{
		{label: "all clear", submitted: true, answers: map[int]interface{}{1: false, 2: false, 4: true, 5: "Assembly Line"}},
		{label: "obstruction found", submitted: true, answers: map[int]interface{}{1: true, 2: true, 3: "Box blocking fire exit.", 4: false, 5: "Warehouse"}},
		{label: "saved progress", submitted: false, answers: map[int]interface{}{1: true, 2: false}},
	}

	for _, sr := range responses {
		answers := model.AnswerSet{}
		for order, v := range sr.answers {
			s, err := model.ScalarOf(v)
			if err != nil {
				log.Fatalf("Bad seed answer: %v", err)
			}
			answers.Put(ids[order], model.ScalarAnswer(s))
		}

		if sr.submitted {
			if _, err := engine.Evaluate(form.Questions, answers); err != nil {
				log.Fatalf("Seed response %q would be rejected: %v", sr.label, err)
			}
		}

		now := time.Now()
		response := &model.Response{
			FormID:       formID,
			SessionToken: strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
			Submitted:    sr.submitted,
			Answers:      answers,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if sr.submitted {
			response.SubmittedAt = &now
		}
		if _, err := responseRepo.Create(ctx, response); err != nil {
			log.Fatalf("Failed to insert response: %v", err)
		}
	}

	fmt.Printf("Successfully created form '%s' (%s) with %d responses\n", form.Name, formID, len(responses))
}
