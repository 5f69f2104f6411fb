package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sara-edu/sara-grading-api/internal/models"
)

// StudentRepository defines roster data operations.
type StudentRepository interface {
	ListActiveByCourse(ctx context.Context, course string) ([]models.Student, error)
	GetByID(ctx context.Context, id uint) (models.Student, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository instantiates the repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) ListActiveByCourse(ctx context.Context, course string) ([]models.Student, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("status = ?", models.StudentStatusActive)
	if course != "" {
		query = query.Where("enrollment_course = ?", course)
	}

	var students []models.Student
	if err := query.Order("id ASC").Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}
