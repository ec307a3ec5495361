package browser

// stealthScript runs before any page script. It hides automation markers,
// perturbs canvas, WebGL and audio fingerprints, answers permission queries
// like a regular profile and makes outer window size match the viewport.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
window.chrome = { runtime: {} };
Object.defineProperty(navigator, 'platform', {get: () => 'Win32'});

const origGetContext = HTMLCanvasElement.prototype.getContext;
HTMLCanvasElement.prototype.getContext = function(type, ...args) {
  const context = origGetContext.apply(this, [type, ...args]);
  if (type === '2d' && context) {
    const getImageData = context.getImageData;
    context.getImageData = function(...a) {
      const imageData = getImageData.apply(this, a);
      for (let i = 0; i < imageData.data.length; i += 4) {
        imageData.data[i] = imageData.data[i] ^ 0x12;
      }
      return imageData;
    };
  }
  return context;
};

if (window.WebGLRenderingContext) {
  const getParameter = WebGLRenderingContext.prototype.getParameter;
  WebGLRenderingContext.prototype.getParameter = function(parameter) {
    if (parameter === 37445) return 'Intel Inc.';
    if (parameter === 37446) return 'Intel Iris OpenGL Engine';
    return getParameter.apply(this, [parameter]);
  };
}

if (window.AudioBuffer) {
  const getChannelData = AudioBuffer.prototype.getChannelData;
  AudioBuffer.prototype.getChannelData = function() {
    const data = getChannelData.apply(this, arguments);
    for (let i = 0; i < data.length; i += 100) {
      data[i] = data[i] + 0.0001;
    }
    return data;
  };
}

const permissionsQuery = (parameters) =>
  Promise.resolve({ state: parameters.name === 'notifications' ? 'denied' : 'granted' });
try {
  Object.defineProperty(navigator, 'permissions', {get: () => ({ query: permissionsQuery })});
} catch (e) {}

Object.defineProperty(window, 'outerWidth', {get: () => window.innerWidth});
Object.defineProperty(window, 'outerHeight', {get: () => window.innerHeight});
`

// StealthScript returns the anti-fingerprinting script injected into every
// captured page.
func StealthScript() string {
	return stealthScript
}
