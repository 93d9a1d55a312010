package models

// ContactMessage is a storefront contact form submission.
type ContactMessage struct {
	FullName       string `json:"fullName" binding:"required,max=200"`
	Email          string `json:"email" binding:"required,email"`
	HouseAddress   string `json:"houseAddress" binding:"max=500"`
	Country        string `json:"country" binding:"max=100"`
	PhoneNumber    string `json:"phoneNumber" binding:"max=40"`
	WhatsappNumber string `json:"whatsappNumber" binding:"max=40"`
	Message        string `json:"message" binding:"required,max=5000"`
	Reference      string `json:"reference,omitempty"`
}
