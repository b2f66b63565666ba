package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lifelog/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrTaskNotFound 在指定任务不存在时返回
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskArchived 在对已归档任务打卡时返回
	ErrTaskArchived = errors.New("task is archived")
	// ErrTaskNameRequired 在任务名称为空时返回
	ErrTaskNameRequired = errors.New("task name is required")
)

// TaskService 负责例行任务的创建、查询与归档
// 任务只归档不删除，历史打卡仍然计入当天的完成数
type TaskService struct {
	db *gorm.DB
}

// TaskFilter 描述列表过滤条件
type TaskFilter struct {
	Status   string
	Category string
	Search   string
}

// TaskInput 定义创建任务时可配置字段
type TaskInput struct {
	Name        string
	Description string
	Category    string
	SortOrder   int
}

// NewTaskService 构造 TaskService
func NewTaskService(gdb *gorm.DB) *TaskService {
	return &TaskService{db: gdb}
}

// List 返回任务集合，默认只返回未归档任务
func (s *TaskService) List(filter TaskFilter) ([]db.Task, error) {
	var tasks []db.Task

	query := s.db.Model(&db.Task{})

	switch status := strings.ToLower(strings.TrimSpace(filter.Status)); status {
	case "all":
	case "":
		query = query.Where("status = ?", db.TaskStatusActive)
	default:
		query = query.Where("status = ?", status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", strings.TrimSpace(filter.Category))
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", strings.TrimSpace(filter.Search))
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Order("sort_order ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

// Get 根据 ID 获取任务
func (s *TaskService) Get(id uint) (*db.Task, error) {
	var task db.Task
	if err := s.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// Create 新建任务
func (s *TaskService) Create(input TaskInput) (*db.Task, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTaskNameRequired
	}

	task := db.Task{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Status:      db.TaskStatusActive,
		SortOrder:   input.SortOrder,
	}

	if err := s.db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &task, nil
}

// Archive 归档任务，重复归档是幂等的
func (s *TaskService) Archive(id uint) (*db.Task, error) {
	task, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if task.Status == db.TaskStatusArchived {
		return task, nil
	}

	task.Status = db.TaskStatusArchived
	if err := s.db.Save(task).Error; err != nil {
		return nil, fmt.Errorf("archive task: %w", err)
	}
	return task, nil
}

// Count 返回未归档任务数
func (s *TaskService) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&db.Task{}).Where("status = ?", db.TaskStatusActive).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}
