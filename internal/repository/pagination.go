package repository

import "gorm.io/gorm"

func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		return query
	}
	if page <= 0 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

func inHostel(query *gorm.DB, hostel string) *gorm.DB {
	if hostel == "" {
		return query
	}
	return query.Where("student_id IN (?)",
		query.Session(&gorm.Session{NewDB: true}).
			Table("student_profiles").
			Select("user_id").
			Where("hostel_name = ?", hostel),
	)
}
