package service

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/storage"
)

var (
	ErrCategoryNameInvalid = errors.New("category name invalid")
	ErrDefaultCategory     = errors.New("default category cannot be modified")
)

// CategoryService 封装类别相关业务操作。
type CategoryService struct {
	repo storage.CategoryRepository
}

// NewCategoryService 创建类别业务服务。
func NewCategoryService(repo storage.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// ResolveCategories 返回用户的分类表，保证兜底类别存在且描述固定。
//
// 兜底类别不存在时惰性创建；存在但描述被改动时在返回值中覆盖为
// 固定描述，保证提示词的一致性。
func (s *CategoryService) ResolveCategories(userID string) ([]domain.Category, error) {
	categories, err := s.repo.ListCategories(userID)
	if err != nil {
		return nil, err
	}

	hasDefault := false
	for i := range categories {
		if categories[i].IsDefault() {
			hasDefault = true
			categories[i].Description = domain.DefaultCategoryDescription
		}
	}

	if !hasDefault {
		fallback := domain.Category{
			ID:          uuid.New().String(),
			UserID:      userID,
			Name:        domain.DefaultCategoryName,
			Description: domain.DefaultCategoryDescription,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.repo.CreateCategory(&fallback); err != nil && !errors.Is(err, storage.ErrCategoryExists) {
			return nil, err
		}
		categories = append(categories, fallback)
	}

	return categories, nil
}

// Create 创建用户自定义类别
func (s *CategoryService) Create(userID, name, description string) (*domain.Category, error) {
	if !domain.ValidateCategoryName(name) {
		return nil, ErrCategoryNameInvalid
	}

	category := &domain.Category{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateCategory(category); err != nil {
		return nil, err
	}
	return category, nil
}

// List 列出用户的分类表（含保证存在的兜底类别）
func (s *CategoryService) List(userID string) ([]domain.Category, error) {
	return s.ResolveCategories(userID)
}

// Update 更新类别名称与描述，兜底类别禁止改名
func (s *CategoryService) Update(userID, categoryID, name, description string) (*domain.Category, error) {
	existing, err := s.repo.GetCategory(userID, categoryID)
	if err != nil {
		return nil, err
	}
	if existing.IsDefault() && name != domain.DefaultCategoryName {
		return nil, ErrDefaultCategory
	}
	if !domain.ValidateCategoryName(name) {
		return nil, ErrCategoryNameInvalid
	}

	existing.Name = name
	existing.Description = description
	if err := s.repo.UpdateCategory(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete 删除类别，兜底类别禁止删除
func (s *CategoryService) Delete(userID, categoryID string) error {
	existing, err := s.repo.GetCategory(userID, categoryID)
	if err != nil {
		return err
	}
	if existing.IsDefault() {
		return ErrDefaultCategory
	}
	return s.repo.DeleteCategory(userID, categoryID)
}

// FindByName 按名称定位类别
func (s *CategoryService) FindByName(userID, name string) (*domain.Category, error) {
	return s.repo.GetCategoryByName(userID, name)
}
