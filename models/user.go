package models

// UsersCollection holds one profile document per provisioned account.
const UsersCollection = "users"

// User is the profile written once when an account is provisioned.
type User struct {
	UID      string `json:"uid"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func UserFromDocument(data map[string]any) User {
	return User{
		UID:      asString(data[FieldUID]),
		FullName: asString(data[FieldFullName]),
		Email:    asString(data[FieldEmail]),
	}
}

func (u User) Fields() map[string]any {
	return map[string]any{
		FieldUID:      u.UID,
		FieldFullName: u.FullName,
		FieldEmail:    u.Email,
	}
}
