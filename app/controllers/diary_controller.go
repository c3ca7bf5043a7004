package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/buddydiary/buddy-api/app/models"
	"github.com/buddydiary/buddy-api/app/repository"
	"github.com/buddydiary/buddy-api/internal/pkg/result"
	"github.com/buddydiary/buddy-api/internal/pkg/usercontext"
)

const entryDateLayout = "2006-01-02"

var diaryRepo repository.DiaryRepository

func InitializeDiaryController(diaries repository.DiaryRepository) {
	diaryRepo = diaries
}

type DiaryRequest struct {
	Title     string   `json:"title" validate:"required,min=1,max=255"`
	Content   string   `json:"content" validate:"max=20000"`
	EntryDate string   `json:"entry_date" validate:"required"`
	Tags      []string `json:"tags" validate:"max=10,dive,min=1,max=50"`
}

type DiaryResponse struct {
	ID        uint     `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	EntryDate string   `json:"entry_date"`
	Tags      []string `json:"tags"`
}

func toDiaryResponse(d *models.Diary) DiaryResponse {
	tags := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		tags = append(tags, t.Name)
	}
	return DiaryResponse{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		EntryDate: d.EntryDate.Format(entryDateLayout),
		Tags:      tags,
	}
}

func HandleCreateDiary(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		return result.NewError(result.Unauthorized)
	}

	var req DiaryRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}
	entryDate, err := time.Parse(entryDateLayout, req.EntryDate)
	if err != nil {
		return result.MessageError(result.InvalidInput, "entry_date must be formatted as YYYY-MM-DD")
	}

	tags, err := diaryRepo.FindOrCreateTags(req.Tags)
	if err != nil {
		return result.WrapError(result.InternalServerError, err)
	}

	diary := &models.Diary{
		UserID:    userID,
		Title:     req.Title,
		Content:   req.Content,
		EntryDate: entryDate,
		Tags:      tags,
	}
	if err := diaryRepo.Create(diary); err != nil {
		return result.WrapError(result.InternalServerError, err)
	}

	return result.Created(c, toDiaryResponse(diary))
}

func HandleListDiaries(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		return result.NewError(result.Unauthorized)
	}

	now := time.Now()
	year := c.QueryInt("year", now.Year())
	month := c.QueryInt("month", int(now.Month()))
	if year < 1 || month < 1 || month > 12 {
		return result.MessageError(result.InvalidInput, "year and month must describe a calendar month")
	}

	diaries, err := diaryRepo.GetByMonth(userID, year, time.Month(month))
	if err != nil {
		return result.WrapError(result.InternalServerError, err)
	}

	out := make([]DiaryResponse, 0, len(diaries))
	for i := range diaries {
		out = append(out, toDiaryResponse(&diaries[i]))
	}
	return result.OK(c, out)
}

func HandleGetDiary(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		return result.NewError(result.Unauthorized)
	}

	diary, err := findOwnedDiary(c, userID)
	if err != nil {
		return err
	}
	return result.OK(c, toDiaryResponse(diary))
}

func HandleUpdateDiary(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		return result.NewError(result.Unauthorized)
	}

	var req DiaryRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}
	entryDate, err := time.Parse(entryDateLayout, req.EntryDate)
	if err != nil {
		return result.MessageError(result.InvalidInput, "entry_date must be formatted as YYYY-MM-DD")
	}

	diary, err := findOwnedDiary(c, userID)
	if err != nil {
		return err
	}

	diary.Title = req.Title
	diary.Content = req.Content
	diary.EntryDate = entryDate
	if err := diaryRepo.Update(diary); err != nil {
		return result.WrapError(result.InternalServerError, err)
	}

	tags, err := diaryRepo.FindOrCreateTags(req.Tags)
	if err != nil {
		return result.WrapError(result.InternalServerError, err)
	}
	if err := diaryRepo.ReplaceTags(diary, tags); err != nil {
		return result.WrapError(result.InternalServerError, err)
	}
	diary.Tags = tags

	return result.OK(c, toDiaryResponse(diary))
}

func HandleDeleteDiary(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		return result.NewError(result.Unauthorized)
	}

	diary, err := findOwnedDiary(c, userID)
	if err != nil {
		return err
	}
	if err := diaryRepo.Delete(diary.ID); err != nil {
		return result.WrapError(result.InternalServerError, err)
	}
	return result.OK(c, fiber.Map{"deleted": true})
}

// findOwnedDiary loads the diary from the path parameter and hides entries
// of other owners behind the same not-found error.
func findOwnedDiary(c *fiber.Ctx, userID uint) (*models.Diary, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return nil, result.NewError(result.DiaryNotFound)
	}

	diary, err := diaryRepo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, result.NewError(result.DiaryNotFound)
		}
		return nil, result.WrapError(result.InternalServerError, err)
	}
	if diary.UserID != userID {
		return nil, result.NewError(result.DiaryNotFound)
	}
	return diary, nil
}
