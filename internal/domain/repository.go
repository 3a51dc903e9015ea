package domain

// OrderRepository описывает требования к хранилищу записей заказов.
// Хранилище работает по принципу last-write-wins: токен конкурентности
// не используется, гонка двух переходов разрешается на уровне стора.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// Save перезаписывает заказ одним durable-вызовом.
	Save(order Order) error
	// List возвращает заказы, отсортированные по времени создания (новые первыми).
	List(limit int) ([]Order, error)
}
