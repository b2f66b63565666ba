package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/streak"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"golang.org/x/sync/errgroup"
)

// 虚拟任务类别。
const (
	SpecialCategoryExercise = "exercise"
	SpecialCategoryReading  = "reading"
	SpecialCategoryLearning = "learning"
)

// 各类别虚拟任务的固定积分。
var specialTaskPoints = map[string]int{
	SpecialCategoryExercise: 30,
	SpecialCategoryReading:  20,
	SpecialCategoryLearning: 20,
}

var specialTaskNamespace = uuid.MustParse("6f1c7e0a-3d5b-4c2e-9a61-2b7f0d4e8c15")

// VirtualTask 是由当天活动日志合成的只读任务，仅用于展示，
// 不计入 routineTasksCompleted，也不影响连胜。
type VirtualTask struct {
	ID        string        `json:"id"`
	Date      daykey.DayKey `json:"date"`
	Category  string        `json:"category"`
	Title     string        `json:"title"`
	Points    int           `json:"points"`
	Entries   int           `json:"entries"`
	Minutes   int           `json:"minutes,omitempty"`
	Pages     int           `json:"pages,omitempty"`
	NotesHTML string        `json:"notes_html,omitempty"`
	Completed bool          `json:"completed"`
}

// SpecialTaskService 为今天合成虚拟任务，每次读取重新计算。
type SpecialTaskService struct {
	logs     *ActivityLogService
	clock    streak.Clock
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewSpecialTaskService 构造 SpecialTaskService
func NewSpecialTaskService(logs *ActivityLogService) *SpecialTaskService {
	return &SpecialTaskService{
		logs:     logs,
		clock:    streak.SystemClock,
		markdown: goldmark.New(),
		policy:   bluemonday.UGCPolicy(),
	}
}

// WithClock 替换时钟，主要用于测试
func (s *SpecialTaskService) WithClock(clock streak.Clock) *SpecialTaskService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// SpecialTasks 返回今天的虚拟任务，每个有记录的类别一条，顺序固定为运动、阅读、学习。
func (s *SpecialTaskService) SpecialTasks(ctx context.Context) ([]VirtualTask, error) {
	today, err := s.logs.Calendar().DayKey(s.clock.Now())
	if err != nil {
		return nil, err
	}
	return s.SpecialTasksOn(ctx, today)
}

// SpecialTasksOn 为指定日期合成虚拟任务。
func (s *SpecialTaskService) SpecialTasksOn(ctx context.Context, day daykey.DayKey) ([]VirtualTask, error) {
	var (
		exercise = VirtualTask{Category: SpecialCategoryExercise}
		reading  = VirtualTask{Category: SpecialCategoryReading}
		learning = VirtualTask{Category: SpecialCategoryLearning}
	)
	var exerciseNotes, readingNotes, learningNotes []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.logs.ExercisesOn(gctx, day)
		if err != nil {
			return err
		}
		var kinds []string
		for _, row := range rows {
			exercise.Entries++
			exercise.Minutes += row.DurationMinutes
			kinds = appendUnique(kinds, row.Kind)
			exerciseNotes = appendNote(exerciseNotes, row.Kind, row.Note)
		}
		exercise.Title = titleFor("Exercise", kinds)
		return nil
	})
	g.Go(func() error {
		rows, err := s.logs.ReadingOn(gctx, day)
		if err != nil {
			return err
		}
		var titles []string
		for _, row := range rows {
			reading.Entries++
			reading.Pages += row.Pages
			titles = appendUnique(titles, row.Title)
			readingNotes = appendNote(readingNotes, row.Title, row.Note)
		}
		reading.Title = titleFor("Reading", titles)
		return nil
	})
	g.Go(func() error {
		rows, err := s.logs.LearningOn(gctx, day)
		if err != nil {
			return err
		}
		var topics []string
		for _, row := range rows {
			learning.Entries++
			learning.Minutes += row.Minutes
			topics = appendUnique(topics, row.Topic)
			learningNotes = appendNote(learningNotes, row.Topic, row.Note)
		}
		learning.Title = titleFor("Learning", topics)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: synthesize special tasks: %w", streak.ErrDataUnavailable, err)
	}

	exercise.NotesHTML = s.render(exerciseNotes)
	reading.NotesHTML = s.render(readingNotes)
	learning.NotesHTML = s.render(learningNotes)

	tasks := make([]VirtualTask, 0, 3)
	for _, task := range []VirtualTask{exercise, reading, learning} {
		if task.Entries == 0 {
			continue
		}
		task.ID = uuid.NewSHA1(specialTaskNamespace, []byte(task.Category+":"+day.String())).String()
		task.Date = day
		task.Points = specialTaskPoints[task.Category]
		task.Completed = true
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// render 把备注列表渲染为 Markdown 列表并做 HTML 清洗。
func (s *SpecialTaskService) render(notes []string) string {
	if len(notes) == 0 {
		return ""
	}
	var source strings.Builder
	for _, note := range notes {
		source.WriteString("- ")
		source.WriteString(note)
		source.WriteString("\n")
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(source.String()), &buf); err != nil {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(buf.String()))
}

func appendUnique(values []string, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return values
	}
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}

func appendNote(notes []string, label, note string) []string {
	note = strings.TrimSpace(strings.ReplaceAll(note, "\n", " "))
	if note == "" {
		return notes
	}
	if label = strings.TrimSpace(label); label != "" {
		note = "**" + label + "**: " + note
	}
	return append(notes, note)
}

func titleFor(prefix string, parts []string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ": " + strings.Join(parts, ", ")
}
