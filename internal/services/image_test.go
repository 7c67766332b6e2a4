package services

import "testing"

func TestSafeImageName(t *testing.T) {
	accepted := []string{
		"photo.png",
		"IMG_2034.jpg",
		"mug(front).webp",
		"a.svg",
		"dotted.name.jpeg",
	}
	for _, name := range accepted {
		if !SafeImageName(name) {
			t.Errorf("SafeImageName(%q) = false, want true", name)
		}
	}

	rejected := []string{
		"",
		".hidden.png",
		"-leading.png",
		"no-extension",
		"script.sh",
		"double.png.exe",
		"shout.PNG",
		"../escape.png",
		"dir/photo.png",
		"space name.png",
	}
	for _, name := range rejected {
		if SafeImageName(name) {
			t.Errorf("SafeImageName(%q) = true, want false", name)
		}
	}
}

func TestImageExtension(t *testing.T) {
	if got := ImageExtension("IMG_2034.jpg"); got != ".jpg" {
		t.Fatalf("ImageExtension = %q, want .jpg", got)
	}
}
