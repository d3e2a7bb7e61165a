package repository

import "gorm.io/gorm"

// maxPageSize 仓库层的单页上限，防止越过处理器直接传入超大分页
const maxPageSize = 100

// applyPagination 应用分页参数，统一处理非法页码与偏移量。
// pageSize 为 0 表示不分页，由调用方自行约束结果规模。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
