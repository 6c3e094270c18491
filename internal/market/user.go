package market

import "time"

type (
	User struct {
		ID           string    `json:"id"`
		Username     string    `json:"username"`
		Email        string    `json:"email"`
		FirstName    string    `json:"firstName"`
		LastName     string    `json:"lastName"`
		City         string    `json:"city"`
		District     string    `json:"district"`
		Address      string    `json:"address"`
		PhoneNumber  string    `json:"phoneNumber"`
		ProfileImage string    `json:"profileImage,omitempty"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
	}

	// Holds the optional fields for updating a profile.
	ProfileUpdate struct {
		FirstName    string `json:"firstName,omitempty"`
		LastName     string `json:"lastName,omitempty"`
		City         string `json:"city,omitempty"`
		District     string `json:"district,omitempty"`
		Address      string `json:"address,omitempty"`
		PhoneNumber  string `json:"phoneNumber,omitempty"`
		ProfileImage string `json:"profileImage,omitempty"`
	}

	Credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	Registration struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	PasswordChange struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}

	Message struct {
		ID         string    `json:"id"`
		Content    string    `json:"content"`
		SenderID   string    `json:"senderId"`
		ReceiverID string    `json:"receiverId"`
		ListingID  string    `json:"listingId"`
		CreatedAt  time.Time `json:"createdAt"`
	}

	Notification struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		Message   string    `json:"message"`
		IsRead    bool      `json:"isRead"`
		CreatedAt time.Time `json:"createdAt"`
	}
)

// DisplayName prefers the full name, falling back to the username.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}
