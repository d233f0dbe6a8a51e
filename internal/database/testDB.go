package database

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	// Load env
	_ "github.com/joho/godotenv/autoload"

	m "hireops-backend/internal/model"
)

var testDBInstance *DBinstanceStruct
var teardown func(context.Context, ...testcontainers.TerminateOption) error

// Exported seeded fixtures for controller and workflow tests.
var (
	TestJobBackend  m.Job
	TestJobData     m.Job
	TestJobClosed   m.Job
	TestCandidate1  m.Candidate
	TestCandidate2  m.Candidate
	TestEmailApp    m.Email
	TestEmailNoise  m.Email
	TestApplication m.Application
)

// GetTestDB starts a PostgreSQL test container and returns a teardown function,
// the DB instance, and any error encountered during setup.
func GetTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, *DBinstanceStruct, error) {

	if testDBInstance != nil && teardown != nil {
		return teardown, testDBInstance, nil
	}

	// Database configuration
	var (
		dbName = "database"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:latest",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return nil, nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, nil, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), nat.Port("5432/tcp"))
	if err != nil {
		return dbContainer.Terminate, nil, err
	}

	config := &DBConfig{
		useConstr: true,
		Constr:    fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", dbHost, dbPort.Port(), dbUser, dbPwd, dbName),
	}

	db, err := NewDBInstance(config)
	if err != nil {
		return dbContainer.Terminate, nil, err
	}

	// Seed sample jobs, candidates and inbox emails
	if err := seedTestData(db); err != nil {
		_ = dbContainer.Terminate(context.Background())
		return nil, nil, err
	}

	testDBInstance = db
	teardown = dbContainer.Terminate

	return dbContainer.Terminate, db, nil
}

// seedTestData inserts sample jobs, candidates and emails if empty.
func seedTestData(db *DBinstanceStruct) error {
	var jobCount int64
	if err := db.Model(&m.Job{}).Count(&jobCount).Error; err != nil {
		return err
	}
	if jobCount > 0 {
		return loadTestData(db)
	}

	year := time.Now().Year()
	jobs := []m.Job{
		{
			JobCode:     fmt.Sprintf("JOB-%d-001", year),
			Title:       "Backend Engineer",
			Department:  "Engineering",
			Location:    "Remote",
			Seniority:   "mid",
			Skills:      pq.StringArray{"Go", "PostgreSQL", "Docker"},
			Description: "Build and operate Go services backed by Postgres.",
			Status:      m.JobStatusOpen,
		},
		{
			JobCode:     fmt.Sprintf("JOB-%d-002", year),
			Title:       "Data Analyst",
			Department:  "Analytics",
			Location:    "Berlin",
			Seniority:   "junior",
			Skills:      pq.StringArray{"SQL", "Python", "Tableau"},
			Description: "Support data cleansing and dashboard creation.",
			Status:      m.JobStatusOpen,
		},
		{
			JobCode:     fmt.Sprintf("JOB-%d-003", year),
			Title:       "Platform Engineer",
			Department:  "Engineering",
			Location:    "Remote",
			Seniority:   "senior",
			Skills:      pq.StringArray{"Kubernetes", "Terraform", "Go"},
			Description: "Own the deployment platform.",
			Status:      m.JobStatusClosed,
		},
	}
	if err := db.Create(&jobs).Error; err != nil {
		return err
	}
	TestJobBackend = jobs[0]
	TestJobData = jobs[1]
	TestJobClosed = jobs[2]

	received := time.Now().Add(-2 * time.Hour)
	msgApp := "<seed-application-1@example.com>"
	msgNoise := "<seed-newsletter-1@example.com>"
	emails := []m.Email{
		{
			MessageID:   &msgApp,
			FromAddress: "alice.nguyen@example.com",
			FromName:    "Alice Nguyen",
			Subject:     "Application for Backend Engineer position",
			BodySnippet: "I would like to apply for the Backend Engineer role. My resume is attached.",
			BodyFull:    "Hello,\n\nI would like to apply for the Backend Engineer role. I have five years of experience with Go, PostgreSQL and Docker.\n\nAlice Nguyen\n+49 151 0000 0001",
			Attachments: pq.StringArray{"alice_nguyen_resume.pdf"},
			ReceivedAt:  &received,
		},
		{
			MessageID:   &msgNoise,
			FromAddress: "newsletter@vendor.example.com",
			FromName:    "Vendor Weekly",
			Subject:     "Your weekly industry digest",
			BodySnippet: "Top stories this week in SaaS.",
			BodyFull:    "Top stories this week in SaaS.",
			ReceivedAt:  &received,
		},
	}
	if err := db.Create(&emails).Error; err != nil {
		return err
	}
	TestEmailApp = emails[0]
	TestEmailNoise = emails[1]

	candidates := []m.Candidate{
		{
			Name:       "Bob Somsak",
			Email:      "bob.somsak@example.com",
			Phone:      "+66 2 000 0000",
			ResumeText: "Bob Somsak. Backend developer. Go, PostgreSQL, Docker, Kubernetes. Built payment services.",
		},
		{
			Name:       "Carla Mendes",
			Email:      "carla.mendes@example.com",
			ResumeText: "Carla Mendes. Data analyst. SQL, Python, dashboards.",
		},
	}
	if err := db.Create(&candidates).Error; err != nil {
		return err
	}
	TestCandidate1 = candidates[0]
	TestCandidate2 = candidates[1]

	score := 82.0
	rec := m.RecommendationAdvance
	app := m.Application{
		CandidateID:      TestCandidate1.ID,
		JobID:            TestJobBackend.ID,
		Stage:            m.StageMatched,
		ResumeScore:      &score,
		Recommendation:   &rec,
		ScoreAttempts:    1,
		ScoreMaxAttempts: m.DefaultScoreMaxAttempts,
	}
	if err := db.Create(&app).Error; err != nil {
		return err
	}
	TestApplication = app

	return nil
}

// loadTestData populates exported variables when records already exist.
func loadTestData(db *DBinstanceStruct) error {
	var jobs []m.Job
	if err := db.Order("id ASC").Limit(3).Find(&jobs).Error; err != nil {
		return err
	}
	if len(jobs) > 0 {
		TestJobBackend = jobs[0]
	}
	if len(jobs) > 1 {
		TestJobData = jobs[1]
	}
	if len(jobs) > 2 {
		TestJobClosed = jobs[2]
	}

	var candidates []m.Candidate
	if err := db.Order("id ASC").Limit(2).Find(&candidates).Error; err != nil {
		return err
	}
	if len(candidates) > 0 {
		TestCandidate1 = candidates[0]
	}
	if len(candidates) > 1 {
		TestCandidate2 = candidates[1]
	}

	var emails []m.Email
	if err := db.Order("id ASC").Limit(2).Find(&emails).Error; err != nil {
		return err
	}
	if len(emails) > 0 {
		TestEmailApp = emails[0]
	}
	if len(emails) > 1 {
		TestEmailNoise = emails[1]
	}

	_ = db.First(&TestApplication).Error

	return nil
}
