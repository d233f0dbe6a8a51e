package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	// Load env file into environments.
	_ "github.com/joho/godotenv/autoload"

	"hireops-backend/internal/agent"
	"hireops-backend/internal/database"
	"hireops-backend/internal/screening"
	"hireops-backend/internal/workflow"
)

// MyServer bundles the database and the domain services the route handlers
// share.
type MyServer struct {
	DB           *database.DBinstanceStruct
	Orchestrator *workflow.Orchestrator
	Screening    *screening.Manager
	Agents       *agentSet
}

type agentSet struct {
	Classifier *agent.Classifier
	Scorer     *agent.Scorer
	Evaluator  *agent.Evaluator
	Generator  *agent.JobGenerator
}

// NewMyServer initializes the database and wires the domain services.
func NewMyServer() (*MyServer, error) {
	db, err := database.GetMainDB()
	if err != nil {
		return nil, fmt.Errorf("database failed to initialize: %w", err)
	}

	client := agent.NewClient()
	agents := &agentSet{
		Classifier: agent.NewClassifier(db.DB, client),
		Scorer:     agent.NewScorer(db.DB, client),
		Evaluator:  agent.NewEvaluator(db.DB, client),
		Generator:  agent.NewJobGenerator(db.DB, client),
	}

	orch := workflow.NewOrchestrator(db, agents.Classifier, agents.Scorer)
	manager, err := screening.NewManager(db, agents.Evaluator, orch)
	if err != nil {
		return nil, err
	}

	return &MyServer{
		DB:           db,
		Orchestrator: orch,
		Screening:    manager,
		Agents:       agents,
	}, nil
}

// NewServer construct new Server instance
func NewServer() *http.Server {
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = 8080
	}

	s, err := NewMyServer()
	if err != nil {
		log.Fatalf("Server failed to initialize: %s", err)
	}

	// Evaluation worker runs for the lifetime of the process.
	s.Screening.StartWorker(context.Background())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
