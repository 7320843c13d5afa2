package db

import (
	"docflow/internal/domain"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// SeedID derives a stable id for seeded rows so reseeding never duplicates
func SeedID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("docflow:seed:"+name)).String()
}

type seedUser struct {
	Email, Username, Organization string
}

type seedDocument struct {
	Key, Title, Excerpt, Content, Type string
	Status                             domain.Status
	Author                             int
	// Reviewer is an index into seedUsers, -1 for none
	Reviewer int
}

var seedUsers = []seedUser{
	{"user1@gmail.com", "user1", "gmail"},
	{"user2@gmail.com", "user2", "gmail"},
	{"user1@yahoo.com", "user1", "yahoo"},
	{"user2@yahoo.com", "user2", "yahoo"},
}

var seedDocuments = []seedDocument{
	{
		Key:      "1",
		Title:    "Q4 Marketing Strategy",
		Excerpt:  "A comprehensive plan for Q4 marketing activities and campaigns",
		Content:  "# Q4 Marketing Strategy\n\nThis document outlines our marketing approach for Q4 2023...",
		Status:   domain.StatusApproved,
		Type:     "Strategy",
		Author:   0,
		Reviewer: 1,
	},
	{
		Key:      "2",
		Title:    "Product Roadmap 2024",
		Excerpt:  "Detailed plan for product development and feature releases in 2024",
		Content:  "# Product Roadmap 2024\n\nThis document outlines our product development plan for 2024...",
		Status:   domain.StatusTodo,
		Type:     "Roadmap",
		Author:   1,
		Reviewer: 0,
	},
	{
		Key:      "3",
		Title:    "Security Audit Results",
		Excerpt:  "Results and recommendations from the Q3 security audit",
		Content:  "# Security Audit Results\n\nThis document presents the findings from our recent security audit...",
		Status:   domain.StatusApproved,
		Type:     "Report",
		Author:   2,
		Reviewer: 3,
	},
	{
		Key:      "4",
		Title:    "New Feature Design",
		Excerpt:  "Design proposal for the new user dashboard interface",
		Content:  "# New Feature Design\n\nThis document outlines the design for our new dashboard...",
		Status:   domain.StatusTodo,
		Type:     "Design",
		Author:   3,
		Reviewer: 2,
	},
}

type seedComment struct {
	Key, Document, Content string
	Author                 int
}

var seedComments = []seedComment{
	{"c1", "1", "Great work on the social media campaign section!", 1},
	{"c2", "3", "All vulnerabilities have been addressed.", 2},
}

// SeedData inserts sample users, documents and workflow templates on an
// empty database (for development only)
func SeedData(db *gorm.DB, log zerolog.Logger) error {
	var count int64
	if err := db.Model(&domain.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info().Msg("Sample data already exists")
		return SeedWorkflows(db, log)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		users := make([]domain.User, len(seedUsers))
		for i, u := range seedUsers {
			users[i] = domain.User{Email: u.Email, Username: u.Username, Organization: u.Organization}
			if err := tx.Create(&users[i]).Error; err != nil {
				return err
			}
		}

		for _, d := range seedDocuments {
			author := users[d.Author]
			doc := domain.Document{
				ID:           SeedID("document:" + d.Key),
				Title:        d.Title,
				Excerpt:      d.Excerpt,
				Content:      d.Content,
				Status:       d.Status,
				Type:         d.Type,
				Organization: author.Organization,
				AuthorID:     author.ID,
			}
			if err := tx.Create(&doc).Error; err != nil {
				return err
			}
			if d.Reviewer < 0 {
				continue
			}

			approval := domain.Approval{
				ID:         SeedID("approval:" + d.Key),
				DocumentID: doc.ID,
				AssignedTo: users[d.Reviewer].ID,
				Status:     domain.ApprovalPending,
			}
			if d.Status == domain.StatusApproved {
				rating := 5
				feedback := "Excellent work!"
				approval.Status = domain.ApprovalApproved
				approval.Rating = &rating
				approval.Feedback = &feedback
			}
			if err := tx.Create(&approval).Error; err != nil {
				return err
			}
		}

		for _, c := range seedComments {
			comment := domain.Comment{
				ID:         SeedID("comment:" + c.Key),
				DocumentID: SeedID("document:" + c.Document),
				Content:    c.Content,
				AuthorID:   users[c.Author].ID,
			}
			if err := tx.Create(&comment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Int("users", len(seedUsers)).Int("documents", len(seedDocuments)).Msg("Added sample data")

	return SeedWorkflows(db, log)
}

type seedStep struct{ Role, Description string }

type seedWorkflow struct {
	Key, Name, Description, TeamID, Team, CreatedByID, CreatedByName, CreatedAt string
	Active                                                                      bool
	Steps                                                                       []seedStep
}

var seedWorkflows = []seedWorkflow{
	{
		Key: "1", Name: "Document Approval Process",
		Description: "Standard document approval workflow for the engineering team",
		Active:      true, TeamID: "team1", Team: "Engineering",
		CreatedByID: "user1", CreatedByName: "Alice Johnson", CreatedAt: "2023-09-15T10:30:00Z",
		Steps: []seedStep{
			{"Junior Developer", "Initial draft and submission"},
			{"Senior Developer", "Technical review and feedback"},
			{"Team Lead", "Final approval"},
		},
	},
	{
		Key: "2", Name: "Marketing Campaign Approval",
		Description: "Workflow for approving marketing campaigns and materials",
		Active:      true, TeamID: "team2", Team: "Marketing",
		CreatedByID: "user2", CreatedByName: "Bob Smith", CreatedAt: "2023-10-01T08:15:00Z",
		Steps: []seedStep{
			{"Designer", "Create initial designs"},
			{"Marketing Manager", "Review and provide feedback"},
			{"Director", "Budget approval"},
			{"VP", "Final sign-off"},
		},
	},
	{
		Key: "3", Name: "Budget Request Process",
		Description: "Workflow for budget requests and approvals",
		Active:      false, TeamID: "team3", Team: "Finance",
		CreatedByID: "user3", CreatedByName: "Charlie Davis", CreatedAt: "2023-09-20T09:00:00Z",
		Steps: []seedStep{
			{"Department Head", "Initial budget request"},
			{"Finance Manager", "Budget review"},
			{"CFO", "Final approval"},
		},
	},
	{
		Key: "4", Name: "Product Feature Approval",
		Description: "Workflow for approving new product features",
		Active:      true, TeamID: "team4", Team: "Product",
		CreatedByID: "current-user", CreatedByName: "You", CreatedAt: "2023-10-10T11:20:00Z",
		Steps: []seedStep{
			{"Product Manager", "Feature specification"},
			{"Designer", "UI/UX design review"},
			{"Senior Developer", "Technical feasibility assessment"},
			{"Team Lead", "Implementation approval"},
		},
	},
	{
		Key: "5", Name: "Code Review Process",
		Description: "Standard workflow for code reviews and merges",
		Active:      true, TeamID: "current-team", Team: "Engineering",
		CreatedByID: "current-user", CreatedByName: "You", CreatedAt: "2023-10-08T13:30:00Z",
		Steps: []seedStep{
			{"Junior Developer", "Code implementation"},
			{"Senior Developer", "Code review"},
			{"QA Engineer", "Testing verification"},
			{"Team Lead", "Final approval and merge"},
		},
	},
	{
		Key: "6", Name: "Deployment Approval",
		Description: "Workflow for approving production deployments",
		Active:      true, TeamID: "current-team", Team: "DevOps",
		CreatedByID: "user6", CreatedByName: "Frank Miller", CreatedAt: "2023-09-28T10:15:00Z",
		Steps: []seedStep{
			{"DevOps Engineer", "Deployment preparation"},
			{"QA Engineer", "Pre-deployment testing"},
			{"Product Manager", "Feature verification"},
			{"CTO", "Final deployment approval"},
		},
	},
}

// SeedWorkflows inserts the standard workflow templates when none exist
func SeedWorkflows(db *gorm.DB, log zerolog.Logger) error {
	var count int64
	if err := db.Model(&domain.Workflow{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	workflows := make([]domain.Workflow, 0, len(seedWorkflows))
	for _, w := range seedWorkflows {
		createdAt, err := time.Parse(time.RFC3339, w.CreatedAt)
		if err != nil {
			return err
		}
		wf := domain.Workflow{
			ID:            SeedID("workflow:" + w.Key),
			Name:          w.Name,
			Description:   w.Description,
			Active:        w.Active,
			TeamID:        w.TeamID,
			Team:          w.Team,
			CreatedByID:   w.CreatedByID,
			CreatedByName: w.CreatedByName,
			CreatedAt:     createdAt,
		}
		for i, s := range w.Steps {
			wf.Steps = append(wf.Steps, domain.WorkflowStep{Position: i, Role: s.Role, Description: s.Description})
		}
		workflows = append(workflows, wf)
	}

	// steps are created through the association
	if err := db.Create(&workflows).Error; err != nil {
		return err
	}
	log.Info().Int("workflows", len(workflows)).Msg("Seeded workflow templates")
	return nil
}
