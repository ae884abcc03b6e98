package user

import "testing"

func TestGeneratePasswordHash_NoPw(t *testing.T) {

	if _, err := GeneratePasswordHash(""); err == nil {
		t.Fatal("there should be an error when no pw is given")
	}

}

func TestGeneratePasswordHash(t *testing.T) {

	pwHashed, err := GeneratePasswordHash("th3P0rd")
	if err != nil {
		t.Fatalf("there should be no error, got %v", err)
	}
	if pwHashed == "th3P0rd" {
		t.Fatal("the password must not be stored as given")
	}

	if !PasswordMatches(pwHashed, "th3P0rd") {
		t.Fatal("the hash should match the password it was made from")
	}
	if PasswordMatches(pwHashed, "th3P0rd!") {
		t.Fatal("the hash should NOT match another password")
	}

	reHashed, _ := GeneratePasswordHash("th3P0rd")
	if pwHashed == reHashed {
		t.Fatal("the two hash's should NOT match as each one is salted")
	}

}

func TestPasswordMatches_NoHash(t *testing.T) {

	if PasswordMatches("", "th3P0rd") {
		t.Fatal("an empty hash never matches")
	}

}
