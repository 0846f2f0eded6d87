package domain

// Question represents the question section of a query. ID is the transaction
// id of the message that carries it.
type Question struct {
	ID    uint16
	Name  string
	Type  RRType
	Class RRClass
}

// NewQuestion builds the single IN-class question for q under the given
// transaction id.
func NewQuestion(id uint16, q Query) Question {
	return Question{
		ID:    id,
		Name:  q.Name,
		Type:  q.Type,
		Class: RRClassIN,
	}
}
