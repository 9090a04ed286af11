package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"scriptorium/internal/domain"
	models "scriptorium/internal/domain/models/library"
	librarySvc "scriptorium/internal/domain/services/library"
)

type seeder struct {
	projects   librarySvc.ProjectService
	references librarySvc.ReferenceService
	documents  librarySvc.DocumentService
}

type seedReference struct {
	title   string
	authors string
	journal string
	year    string
	file    *models.File
}

var seedReferences = []seedReference{
	{
		title:   "A Mathematical Theory of Communication",
		authors: "Shannon, C. E.",
		journal: "Bell System Technical Journal",
		year:    "1948",
	},
	{
		title:   "Reading notes",
		year:    "2024",
		file: &models.File{
			Name: "reading-notes.md",
			Data: []byte("# Reading notes\n\n- entropy as average surprise\n- channel capacity\n"),
		},
	},
}

var seedDrafts = []string{
	"Introduction\n\nInformation theory begins with a question about surprise.",
	"Introduction\n\nInformation theory begins with a question about uncertainty.",
}

func (s *seeder) seed(ctx context.Context, ownerID string) error {
	project, err := s.projects.CreateProject(ctx, &librarySvc.CreateProjectRequest{
		OwnerID: ownerID,
		Name:    "Sample project",
	})
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		log.Printf("Project already exists (ID: %s), reusing it", conflict.ResourceID)
		project = &models.Project{ID: conflict.ResourceID}
	case err != nil:
		return fmt.Errorf("create project: %w", err)
	}

	for i, ref := range seedReferences {
		result, err := s.references.CreateReference(ctx, &librarySvc.CreateReferenceRequest{
			ActorID:    ownerID,
			Title:      ref.title,
			Authors:    ref.authors,
			Journal:    ref.journal,
			Year:       ref.year,
			File:       ref.file,
			ProjectIDs: []string{project.ID},
		})
		if errors.Is(err, domain.ErrConflict) {
			log.Printf("Reference %d/%d already in library: %s", i+1, len(seedReferences), ref.title)
			continue
		}
		if err != nil {
			return fmt.Errorf("create reference %q: %w", ref.title, err)
		}
		log.Printf("Reference %d/%d %s: %s (ID: %s)", i+1, len(seedReferences), result.Outcome, ref.title, result.Reference.ID)
	}

	label := "Chapter 1"
	doc, err := s.documents.CreateDocument(ctx, &librarySvc.CreateDocumentRequest{
		OwnerID:   ownerID,
		ProjectID: &project.ID,
		Label:     &label,
		Text:      &seedDrafts[0],
	})
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	// Later drafts leave a revision history behind
	for _, draft := range seedDrafts[1:] {
		text := draft
		if _, err := s.documents.UpdateDocument(ctx, doc.ID, ownerID, &librarySvc.UpdateDocumentRequest{
			Text: librarySvc.OptionalText{Present: true, Value: &text},
		}); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
	}
	log.Printf("Document created (ID: %s) with %d drafts", doc.ID, len(seedDrafts))

	return nil
}
