package inbox

import (
	"time"

	"github.com/lib/pq"

	"hireops-backend/internal/model"
	"hireops-backend/internal/utilities"
)

// SampleEmails returns the bundled sample mailbox used when no mail
// transport is configured. A mix of applications and noise so the classifier
// has something to disagree about.
func SampleEmails() []model.Email {
	at := func(hoursAgo int) *time.Time {
		t := time.Now().Add(-time.Duration(hoursAgo) * time.Hour)
		return &t
	}

	return []model.Email{
		{
			MessageID:   utilities.Ptr("<sample-app-priya@example.com>"),
			FromAddress: "priya.sharma@example.com",
			FromName:    "Priya Sharma",
			Subject:     "Application for Backend Engineer position",
			BodySnippet: "I am excited to apply for the Backend Engineer role...",
			BodyFull:    "Hi,\n\nI am excited to apply for the Backend Engineer role. I have six years of experience building Go services on PostgreSQL and Kubernetes, most recently at a payments startup.\n\nMy resume is attached.\n\nPriya Sharma\n+91 98 7654 3210",
			Attachments: pq.StringArray{"priya_sharma_resume.pdf"},
			ReceivedAt:  at(3),
		},
		{
			MessageID:   utilities.Ptr("<sample-app-daniel@example.com>"),
			FromAddress: "daniel.okafor@example.com",
			FromName:    "Daniel Okafor",
			Subject:     "Interested in the Data Analyst opportunity",
			BodySnippet: "Please consider my application for the Data Analyst role...",
			BodyFull:    "Hello,\n\nPlease consider my application for the Data Analyst role. I work daily with SQL, Python and Tableau, and have led dashboard migrations for two companies.\n\nBest,\nDaniel Okafor",
			Attachments: pq.StringArray{"daniel_okafor_cv.docx"},
			ReceivedAt:  at(8),
		},
		{
			MessageID:   utilities.Ptr("<sample-app-marta@example.com>"),
			FromAddress: "marta.kowalska@example.com",
			FromName:    "Marta Kowalska",
			Subject:     "Resume - Platform Engineer",
			BodySnippet: "Attaching my resume for the platform engineering role...",
			BodyFull:    "Hi team,\n\nAttaching my resume for the platform engineering role. Terraform, Kubernetes and Go are my daily tools; I currently run a 40-cluster fleet.\n\nMarta Kowalska",
			Attachments: pq.StringArray{"marta_kowalska.pdf"},
			ReceivedAt:  at(26),
		},
		{
			MessageID:   utilities.Ptr("<sample-noise-invoice@example.com>"),
			FromAddress: "billing@cloudvendor.example.com",
			FromName:    "CloudVendor Billing",
			Subject:     "Your invoice for July is ready",
			BodySnippet: "Your monthly invoice is attached...",
			BodyFull:    "Your monthly invoice is attached. Amount due: $1,240.00.",
			ReceivedAt:  at(30),
		},
		{
			MessageID:   utilities.Ptr("<sample-noise-digest@example.com>"),
			FromAddress: "digest@technews.example.com",
			FromName:    "Tech News Digest",
			Subject:     "This week in engineering leadership",
			BodySnippet: "Five articles worth your time this week...",
			BodyFull:    "Five articles worth your time this week, covering incident reviews, platform teams and more.",
			ReceivedAt:  at(50),
		},
	}
}
