package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/UkralStul/chirp/internal/domain"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// UserSource - то, что нужно лоадеру от хранилища.
type UserSource interface {
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.UserProfile, error)
}

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	UserByID *dataloader.Loader
}

// NewLoaders создает лоадеры для одного запроса.
func NewLoaders(store UserSource) *Loaders {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := keys.Keys()

		// Один запрос к хранилищу на всю пачку ключей
		users, err := store.GetUsersByIDs(ctx, ids)
		results := make([]*dataloader.Result, len(keys))
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Результат в том же порядке, что и ключи; отсутствующий пользователь - nil
		for i, id := range ids {
			results[i] = &dataloader.Result{Data: users[id]}
		}
		return results
	}

	return &Loaders{
		UserByID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond*1)),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store UserSource, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithLoaders(r.Context(), NewLoaders(store))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithLoaders кладет лоадеры в контекст. Нужен там, где одно соединение
// обслуживает много запросов: кэш лоадера живет не дольше одного из них.
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, key, loaders)
}

// For извлекает лоадеры из контекста. Без Middleware возвращает nil.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// AttachAuthorPhotos проставляет фото авторов в записи ленты.
// Все ключи ставятся в очередь до ожидания, поэтому выходит один батч.
func AttachAuthorPhotos(ctx context.Context, entries []domain.FeedEntry) error {
	loaders := For(ctx)
	if loaders == nil {
		return nil
	}

	thunks := make([]dataloader.Thunk, len(entries))
	for i, e := range entries {
		if e.Post.AuthorID == "" {
			continue
		}
		thunks[i] = loaders.UserByID.Load(ctx, dataloader.StringKey(e.Post.AuthorID))
	}

	for i, thunk := range thunks {
		if thunk == nil {
			continue
		}
		v, err := thunk()
		if err != nil {
			return err
		}
		if u, ok := v.(*domain.UserProfile); ok && u != nil {
			entries[i].AuthorPhoto = u.PhotoURL
		}
	}
	return nil
}
