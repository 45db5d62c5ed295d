package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/utils"
)

var exportHeader = []string{"list", "list_position", "card_id", "title", "description", "due_date", "position", "created_at"}

// ExportService writes a board's cards to CSV or XLSX in the background.
type ExportService struct {
	db    *gorm.DB
	authz *AuthzService
	dir   string
	wg    sync.WaitGroup
}

func NewExportService(db *gorm.DB, authz *AuthzService, dir string) *ExportService {
	return &ExportService{db: db, authz: authz, dir: dir}
}

// Start queues an export job and returns immediately.
func (s *ExportService) Start(ctx context.Context, actorID, boardID uint, format string) (*models.ExportJob, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		return nil, Invalid("Format must be csv or xlsx")
	}

	var board models.Board
	if err := s.db.WithContext(ctx).Select("id").First(&board, boardID).Error; err != nil {
		return nil, notFound(err, ErrBoardNotFound)
	}
	if err := authorize(ctx, s.authz.IsOwner, actorID, boardID, ErrNotBoardOwner); err != nil {
		return nil, err
	}

	job := models.ExportJob{
		JobID:         uuid.New().String(),
		BoardID:       boardID,
		RequestedByID: actorID,
		Format:        format,
		Status:        models.ExportQueued,
	}
	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, err
	}

	log := utils.LoggerFrom(ctx).With(slog.String("job_id", job.JobID))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(context.WithoutCancel(ctx), log, job.JobID)
	}()
	return &job, nil
}

// Get returns a job visible to actorID: its requester or a board owner.
func (s *ExportService) Get(ctx context.Context, actorID uint, jobID string) (*models.ExportJob, error) {
	var job models.ExportJob
	if err := s.db.WithContext(ctx).First(&job, "job_id = ?", jobID).Error; err != nil {
		return nil, notFound(err, ErrExportNotFound)
	}
	if job.RequestedByID == actorID {
		return &job, nil
	}
	if err := authorize(ctx, s.authz.IsOwner, actorID, job.BoardID, ErrNotBoardOwner); err != nil {
		return nil, err
	}
	return &job, nil
}

// Wait blocks until running jobs finish.
func (s *ExportService) Wait() {
	s.wg.Wait()
}

func (s *ExportService) process(ctx context.Context, log *slog.Logger, jobID string) {
	var job models.ExportJob
	if err := s.db.WithContext(ctx).First(&job, "job_id = ?", jobID).Error; err != nil {
		log.Error("export job vanished", slog.Any("error", err))
		return
	}
	s.db.WithContext(ctx).Model(&job).Update("status", models.ExportProcessing)

	rows, err := s.rows(ctx, job.BoardID)
	if err == nil {
		var outPath string
		outPath, err = s.write(job, rows)
		if err == nil {
			s.db.WithContext(ctx).Model(&job).Updates(map[string]any{"status": models.ExportDone, "file_path": outPath})
			log.Info("export done", slog.Int("rows", len(rows)))
			return
		}
	}

	em := err.Error()
	s.db.WithContext(ctx).Model(&job).Updates(map[string]any{"status": models.ExportFailed, "error_msg": em})
	log.Error("export failed", slog.Any("error", err))
}

func (s *ExportService) rows(ctx context.Context, boardID uint) ([][]string, error) {
	var lists []models.List
	if err := s.db.WithContext(ctx).Where("board_id = ?", boardID).Order("position, id").Find(&lists).Error; err != nil {
		return nil, err
	}

	var out [][]string
	for _, l := range lists {
		var cards []models.Card
		if err := s.db.WithContext(ctx).Where("list_id = ?", l.ID).Order("position, id").Find(&cards).Error; err != nil {
			return nil, err
		}
		for _, c := range cards {
			desc, due := "", ""
			if c.Description != nil {
				desc = *c.Description
			}
			if c.DueDate != nil {
				due = c.DueDate.Format(time.RFC3339)
			}
			out = append(out, []string{
				l.Name,
				strconv.Itoa(l.Position),
				strconv.FormatUint(uint64(c.ID), 10),
				c.Title,
				desc,
				due,
				strconv.Itoa(c.Position),
				c.CreatedAt.Format(time.RFC3339),
			})
		}
	}
	return out, nil
}

func (s *ExportService) write(job models.ExportJob, rows [][]string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(s.dir, fmt.Sprintf("board_%d_%s.%s", job.BoardID, job.JobID, job.Format))

	if job.Format == "xlsx" {
		return outPath, writeXLSX(outPath, rows)
	}
	return outPath, writeCSV(outPath, rows)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Sync()
}

func writeXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Cards"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	write := func(rowIdx int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		vals := make([]any, len(values))
		for i, v := range values {
			vals[i] = v
		}
		return f.SetSheetRow(sheet, cell, &vals)
	}

	if err := write(1, exportHeader); err != nil {
		return err
	}
	for i, r := range rows {
		if err := write(i+2, r); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
