// Package main loads sample hiring data for local development and demos.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"hireops-backend/internal/controller/inbox"
	"hireops-backend/internal/database"
	"hireops-backend/internal/model"
)

func main() {

	db, err := database.GetMainDB()
	if err != nil {
		log.Fatalf("Database failed to initialize: %s", err)
	}

	var jobCount int64
	if err := db.Model(&model.Job{}).Count(&jobCount).Error; err != nil {
		log.Fatalf("Failed to inspect jobs: %s", err)
	}
	if jobCount > 0 {
		log.Println("Database already seeded, nothing to do")
		return
	}

	year := time.Now().Year()
	jobs := []model.Job{
		{
			JobCode:     fmt.Sprintf("JOB-%d-001", year),
			Title:       "Backend Engineer",
			Department:  "Engineering",
			Location:    "Remote",
			Seniority:   "mid",
			Skills:      pq.StringArray{"Go", "PostgreSQL", "Docker"},
			Description: "Design, build and operate Go services backed by PostgreSQL.",
			Status:      model.JobStatusOpen,
		},
		{
			JobCode:     fmt.Sprintf("JOB-%d-002", year),
			Title:       "Data Analyst",
			Department:  "Analytics",
			Location:    "Berlin",
			Seniority:   "junior",
			Skills:      pq.StringArray{"SQL", "Python", "Tableau"},
			Description: "Own reporting pipelines and stakeholder dashboards.",
			Status:      model.JobStatusOpen,
		},
		{
			JobCode:     fmt.Sprintf("JOB-%d-003", year),
			Title:       "Platform Engineer",
			Department:  "Engineering",
			Location:    "Remote",
			Seniority:   "senior",
			Skills:      pq.StringArray{"Kubernetes", "Terraform", "Go"},
			Description: "Run the deployment platform and developer tooling.",
			Status:      model.JobStatusOpen,
		},
	}
	if err := db.Create(&jobs).Error; err != nil {
		log.Fatalf("Failed to seed jobs: %s", err)
	}
	log.Printf("Seeded %d jobs", len(jobs))

	emails := inbox.SampleEmails()
	if err := db.Create(&emails).Error; err != nil {
		log.Fatalf("Failed to seed inbox: %s", err)
	}
	log.Printf("Seeded %d inbox emails", len(emails))

	candidates := []model.Candidate{
		{
			Name:       "Bob Somsak",
			Email:      "bob.somsak@example.com",
			Phone:      "+66 2 000 0000",
			ResumeText: "Bob Somsak. Backend developer with Go, PostgreSQL, Docker and Kubernetes. Built payment services at scale.",
		},
		{
			Name:       "Carla Mendes",
			Email:      "carla.mendes@example.com",
			ResumeText: "Carla Mendes. Data analyst. SQL, Python, dashboard migrations, stakeholder reporting.",
		},
	}
	if err := db.Create(&candidates).Error; err != nil {
		log.Fatalf("Failed to seed candidates: %s", err)
	}
	log.Printf("Seeded %d candidates", len(candidates))

	log.Println("Done")
}
