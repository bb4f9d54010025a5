package repo

import (
	"context"
	"math"
)

func (r *Repository[T]) pageArgs(perPage, page int) (int, int) {
	if perPage <= 0 {
		perPage = r.perPage
	}
	if page < 1 {
		page = 1
	}
	// 保证 (page-1)*perPage 及 SimplePaginate 的 perPage+1 不溢出
	if maxPage := math.MaxInt/perPage - 1; page > maxPage {
		page = maxPage
	}
	return perPage, page
}

// Paginate 返回完整分页结果（含总数与总页数）。
func (r *Repository[T]) Paginate(ctx context.Context, perPage, page int, columns ...string) (*PagedResult[T], error) {
	return r.PaginateByAttributes(ctx, nil, perPage, page, columns...)
}

// PaginateByAttributes 在条件之后叠加属性条件再分页。
func (r *Repository[T]) PaginateByAttributes(ctx context.Context, attrs Attributes, perPage, page int, columns ...string) (*PagedResult[T], error) {
	defer r.reset()
	perPage, page = r.pageArgs(perPage, page)

	q, err := r.prepare(ctx)
	if err == nil {
		q, err = r.whereAttributes(q, attrs)
	}
	if err != nil {
		return nil, err
	}

	total, err := r.model.Count(ctx, q.opts...)
	if err != nil {
		r.logFailure(ctx, "paginate.count", err)
		return nil, err
	}

	var items []T
	if total > 0 && int64((page-1)*perPage) < total {
		paged := q.Offset((page - 1) * perPage).Limit(perPage)
		if err := r.find(ctx, "paginate", paged, columns, &items); err != nil {
			return nil, err
		}
	}

	return &PagedResult[T]{
		Data:       toPointers(items),
		Total:      total,
		Page:       page,
		Size:       perPage,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	}, nil
}

// SimplePaginate 不统计总数，多取一条判断是否还有下一页。
func (r *Repository[T]) SimplePaginate(ctx context.Context, perPage, page int, columns ...string) (*SimplePage[T], error) {
	defer r.reset()
	perPage, page = r.pageArgs(perPage, page)

	q, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}

	var items []T
	paged := q.Offset((page - 1) * perPage).Limit(perPage + 1)
	if err := r.find(ctx, "simple_paginate", paged, columns, &items); err != nil {
		return nil, err
	}

	hasMore := len(items) > perPage
	if hasMore {
		items = items[:perPage]
	}
	return &SimplePage[T]{
		Data:    toPointers(items),
		Page:    page,
		Size:    perPage,
		HasMore: hasMore,
	}, nil
}
